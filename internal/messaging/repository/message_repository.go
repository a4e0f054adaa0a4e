package repository

import (
	"context"
	"errors"

	"rural_skills_service/internal/messaging/domain"
	errprocess "rural_skills_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MessageRepository definition access to the messages collection
type MessageRepository interface {
	// FindAllOrdered 讀取整個 log, created_at 升序
	FindAllOrdered(ctx context.Context) ([]domain.Message, error)
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// Insert 寫入新訊息, id 與 created_at 由 store 指定, 回傳寫入後的文件
	Insert(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// MarkRead 設定 read=true, 已讀或不存在都不算錯誤
	MarkRead(ctx context.Context, messageID string) error
	// Delete 僅刪除 senderID 自己送出的訊息, 回傳是否有刪除
	Delete(ctx context.Context, messageID, senderID string) (bool, error)
}

type mongoMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll: db.Collection(domain.MessagesCollection),
	}
}

// EnsureMessageIndexes create the indexes the log query relies on
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(domain.MessagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}}},
	})
	return err
}

func (r *mongoMessageRepository) FindAllOrdered(ctx context.Context) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errprocess.Wrap("find messages", err)
	}
	defer cur.Close(ctx)

	messages := make([]domain.Message, 0)
	if err := cur.All(ctx, &messages); err != nil {
		return nil, errprocess.Wrap("decode messages", err)
	}
	return messages, nil
}

func (r *mongoMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, errprocess.Wrap("find message", err, zap.String("messageID", messageID))
	}
	return &msg, nil
}

// Insert upsert on a fresh id so the document and its server timestamp land in one write
func (r *mongoMessageRepository) Insert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if !msg.Valid() {
		return nil, domain.ErrInvalidMessage
	}
	id := primitive.NewObjectID().Hex()
	update := bson.M{
		"$setOnInsert": bson.M{
			"sender_id":     msg.SenderID,
			"receiver_id":   msg.ReceiverID,
			"type":          msg.Kind,
			"text":          msg.Text,
			"audio_url":     msg.AudioURL,
			"read":          false,
			"sender_name":   msg.SenderName,
			"receiver_name": msg.ReceiverName,
		},
		"$currentDate": bson.M{"created_at": true},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.Message
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, messageID string) error {
	filter := bson.M{"_id": messageID, "read": false}
	update := bson.M{"$set": bson.M{"read": true}}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *mongoMessageRepository) Delete(ctx context.Context, messageID, senderID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": messageID, "sender_id": senderID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
