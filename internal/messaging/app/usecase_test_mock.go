package app

import (
	"context"
	"io"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// FindAllOrdered mock read whole log
func (m *MockMessageRepository) FindAllOrdered(ctx context.Context) ([]domain.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock set read flag
func (m *MockMessageRepository) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// Delete mock delete own message
func (m *MockMessageRepository) Delete(ctx context.Context, messageID, senderID string) (bool, error) {
	args := m.Called(ctx, messageID, senderID)
	return args.Bool(0), args.Error(1)
}

// MockProfileRepository Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

// FindName mock profile name lookup
func (m *MockProfileRepository) FindName(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// MockChangePublisher Mock ChangePublisher
type MockChangePublisher struct {
	mock.Mock
}

// Publish mock publish change event
func (m *MockChangePublisher) Publish(ctx context.Context, ev repository.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockMediaStore Mock MediaStore
type MockMediaStore struct {
	mock.Mock
}

// UploadAudio mock upload
func (m *MockMediaStore) UploadAudio(ctx context.Context, ownerID string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, ownerID, r, size, contentType)
	return args.String(0), args.Error(1)
}
