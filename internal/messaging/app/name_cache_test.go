package app

import (
	"context"
	"errors"
	"testing"

	"rural_skills_service/internal/messaging/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPartnerNameCache_OneLookupPerPartner(t *testing.T) {
	ctx := context.Background()
	mockProfiles := new(MockProfileRepository)
	mockProfiles.On("FindName", ctx, "B").Return("Bob", nil).Once()
	mockProfiles.On("FindName", ctx, "C").Return("Carol", nil).Once()

	cache := NewPartnerNameCache(mockProfiles, 2)
	cache.Prefetch(ctx, []string{"B", "C", "B", "", "C"})
	cache.Prefetch(ctx, []string{"C", "B"})

	assert.Equal(t, "Bob", cache.Resolve("B", "old"))
	assert.Equal(t, "Carol", cache.Resolve("C", ""))
	assert.Equal(t, "fallback", cache.Resolve("D", "fallback"))
	mockProfiles.AssertNumberOfCalls(t, "FindName", 2)
}

// 查詢失敗時使用訊息上的名稱, 下一輪再查
func TestPartnerNameCache_LookupFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	mockProfiles := new(MockProfileRepository)
	mockProfiles.On("FindName", ctx, "B").Return("", errors.New("unavailable")).Once()
	mockProfiles.On("FindName", ctx, "B").Return("Bob", nil).Once()

	cache := NewPartnerNameCache(mockProfiles, 2)
	cache.Prefetch(ctx, []string{"B"})
	assert.Equal(t, "Bobby", cache.Resolve("B", "Bobby"))

	log := []domain.Message{{ID: "1", SenderID: "B", ReceiverID: "A", SenderName: "Bobby", CreatedAt: ts(1)}}
	inbox := domain.BuildInbox("A", log, cache.Resolve)
	assert.Equal(t, "Bobby", inbox["B"].PartnerDisplayName)

	cache.Prefetch(ctx, []string{"B"})
	inbox = domain.BuildInbox("A", log, cache.Resolve)
	assert.Equal(t, "Bob", inbox["B"].PartnerDisplayName)
	mockProfiles.AssertExpectations(t)
}

func TestPartnerNameCache_EmptyNameNotCached(t *testing.T) {
	ctx := context.Background()
	mockProfiles := new(MockProfileRepository)
	mockProfiles.On("FindName", ctx, mock.Anything).Return("", nil)

	cache := NewPartnerNameCache(mockProfiles, 0)
	cache.Prefetch(ctx, []string{"B"})

	assert.Equal(t, "", cache.Resolve("B", ""))
	log := []domain.Message{{ID: "1", SenderID: "B", ReceiverID: "A", CreatedAt: ts(1)}}
	assert.Equal(t, "B", domain.BuildInbox("A", log, cache.Resolve)["B"].PartnerDisplayName)
}
