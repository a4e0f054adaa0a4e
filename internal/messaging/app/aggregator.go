package app

import (
	"context"
	"errors"
	"strings"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"
	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
)

// Aggregator 私訊的寫入與單次查詢
type Aggregator struct {
	msgRepo  repository.MessageRepository
	profiles repository.ProfileRepository
	feed     repository.ChangePublisher
	parallel int
}

// NewAggregator create Aggregator
func NewAggregator(
	msgRepo repository.MessageRepository,
	profiles repository.ProfileRepository,
	feed repository.ChangePublisher,
	parallel int,
) *Aggregator {
	return &Aggregator{
		msgRepo:  msgRepo,
		profiles: profiles,
		feed:     feed,
		parallel: parallel,
	}
}

// BuildInbox reads the whole log once and returns currentUserID's inbox, newest conversation first
func (a *Aggregator) BuildInbox(ctx context.Context, currentUserID string) ([]domain.ConversationSummary, int, error) {
	if currentUserID == "" {
		return nil, 0, domain.ErrMissingSender
	}
	msgs, err := a.msgRepo.FindAllOrdered(ctx)
	if err != nil {
		return nil, 0, err
	}

	names := NewPartnerNameCache(a.profiles, a.parallel)
	names.Prefetch(ctx, domain.PartnerIDs(currentUserID, msgs))
	inbox := domain.BuildInbox(currentUserID, msgs, names.Resolve)
	return inbox.Sorted(), inbox.TotalUnread(), nil
}

// SelectTranscript reads the whole log once and returns the conversation with partnerID
func (a *Aggregator) SelectTranscript(ctx context.Context, currentUserID, partnerID string) ([]domain.Message, error) {
	msgs, err := a.msgRepo.FindAllOrdered(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SelectTranscript(currentUserID, partnerID, msgs), nil
}

// Send 寫入一則訊息, created_at 由 store 指定
func (a *Aggregator) Send(ctx context.Context, currentUserID, partnerID string, payload domain.SendPayload) (*domain.Message, error) {
	if currentUserID == "" {
		return nil, domain.ErrMissingSender
	}
	if partnerID == "" {
		return nil, domain.ErrMissingPartner
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		SenderID:     currentUserID,
		ReceiverID:   partnerID,
		Kind:         payload.Kind(),
		Read:         false,
		SenderName:   a.displayName(ctx, currentUserID),
		ReceiverName: a.displayName(ctx, partnerID),
	}
	if msg.Kind == domain.MessageKindAudio {
		msg.AudioURL = strings.TrimSpace(payload.AudioURL)
	} else {
		msg.Text = strings.TrimSpace(payload.Text)
	}

	stored, err := a.msgRepo.Insert(ctx, msg)
	if err != nil {
		logger.Log.Error("send message failed", zap.String("senderID", currentUserID), zap.String("receiverID", partnerID), zap.Error(err))
		return nil, domain.NewStoreWriteFailure("create", "", err)
	}

	a.publish(ctx, repository.ChangeEvent{
		Op:              repository.ChangeCreated,
		MessageID:       stored.ID,
		ConversationKey: domain.ConversationKey(currentUserID, partnerID),
	})
	return stored, nil
}

// Delete 收回訊息, 只有寄件者可以刪除
func (a *Aggregator) Delete(ctx context.Context, currentUserID, messageID string) error {
	if currentUserID == "" {
		return domain.ErrMissingSender
	}
	msg, err := a.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != currentUserID {
		return domain.ErrNotMessageSender
	}

	deleted, err := a.msgRepo.Delete(ctx, messageID, currentUserID)
	if err != nil {
		logger.Log.Error("delete message failed", zap.String("messageID", messageID), zap.Error(err))
		return domain.NewStoreWriteFailure("delete", messageID, err)
	}
	if !deleted {
		return domain.ErrMessageNotFound
	}

	a.publish(ctx, repository.ChangeEvent{
		Op:              repository.ChangeDeleted,
		MessageID:       messageID,
		ConversationKey: domain.ConversationKey(msg.SenderID, msg.ReceiverID),
	})
	return nil
}

// displayName profile name captured onto the message, "User" when unknown
func (a *Aggregator) displayName(ctx context.Context, userID string) string {
	name, err := a.profiles.FindName(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileLookup) {
			logger.Log.Warn(domain.ErrProfileLookup.Error(), zap.String("userID", userID), zap.Error(err))
		}
		return domain.DefaultDisplayName
	}
	if name == "" {
		return domain.DefaultDisplayName
	}
	return name
}

// publish 通知失敗不影響已完成的寫入, 訂閱端下次變更時仍會重新讀取
func (a *Aggregator) publish(ctx context.Context, ev repository.ChangeEvent) {
	if a.feed == nil {
		return
	}
	if err := a.feed.Publish(ctx, ev); err != nil {
		logger.Log.Warn("publish change failed", zap.String("op", string(ev.Op)), zap.String("messageID", ev.MessageID), zap.Error(err))
	}
}
