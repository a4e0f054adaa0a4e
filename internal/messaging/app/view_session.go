package app

import (
	"context"
	"sync"
	"time"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"
	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
)

// ViewService 建立即時的 inbox / transcript view
type ViewService struct {
	logSource repository.LogSource
	msgRepo   repository.MessageRepository
	profiles  repository.ProfileRepository
	feed      repository.ChangePublisher
	parallel  int
	timeout   time.Duration
}

// NewViewService create ViewService
func NewViewService(
	logSource repository.LogSource,
	msgRepo repository.MessageRepository,
	profiles repository.ProfileRepository,
	feed repository.ChangePublisher,
	parallel int,
	timeout time.Duration,
) *ViewService {
	return &ViewService{
		logSource: logSource,
		msgRepo:   msgRepo,
		profiles:  profiles,
		feed:      feed,
		parallel:  parallel,
		timeout:   timeout,
	}
}

// ViewSession one live view for a user and an optional selected partner.
// Every snapshot is turned into exactly one View; nothing is emitted after Close.
type ViewSession struct {
	currentUserID string
	partnerID     string
	onView        func(domain.View)

	ctx    context.Context
	cancel context.CancelFunc
	names  *PartnerNameCache
	marker *ReadMarker
	sub    repository.Subscription

	mu     sync.Mutex
	latest domain.View
	closed bool
}

// OpenView subscribes to the message log; partnerID may be empty for an inbox-only view.
// onView is called from a single goroutine, one call per snapshot.
func (s *ViewService) OpenView(ctx context.Context, currentUserID, partnerID string, onView func(domain.View)) (*ViewSession, error) {
	if currentUserID == "" {
		return nil, domain.ErrMissingSender
	}

	viewCtx, cancel := context.WithCancel(ctx)
	v := &ViewSession{
		currentUserID: currentUserID,
		partnerID:     partnerID,
		onView:        onView,
		ctx:           viewCtx,
		cancel:        cancel,
		names:         NewPartnerNameCache(s.profiles, s.parallel),
		marker:        NewReadMarker(s.msgRepo, s.feed, s.parallel, s.timeout),
	}

	sub, err := s.logSource.Subscribe(viewCtx, v.process)
	if err != nil {
		cancel()
		return nil, err
	}
	v.sub = sub

	logger.Log.Debug("view opened", zap.String("userID", currentUserID), zap.String("partnerID", partnerID))
	return v, nil
}

// PartnerID selected conversation, empty for inbox-only
func (v *ViewSession) PartnerID() string {
	return v.partnerID
}

// Latest last emitted view
func (v *ViewSession) Latest() domain.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

// MarkRead re-runs read marking on the last emitted transcript
func (v *ViewSession) MarkRead() int {
	if v.partnerID == "" {
		return 0
	}
	v.mu.Lock()
	closed := v.closed
	transcript := v.latest.Transcript
	v.mu.Unlock()
	if closed {
		return 0
	}
	return v.marker.MarkDelivered(transcript, v.currentUserID)
}

// Close 停止訂閱並等待背景的已讀寫入結束, 可重複呼叫
func (v *ViewSession) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	if v.sub != nil {
		v.sub.Close()
	}
	v.marker.Wait()
	logger.Log.Debug("view closed", zap.String("userID", v.currentUserID), zap.String("partnerID", v.partnerID))
}

func (v *ViewSession) process(snap domain.Snapshot) {
	if v.ctx.Err() != nil {
		return
	}

	v.names.Prefetch(v.ctx, domain.PartnerIDs(v.currentUserID, snap.Messages))
	view := domain.Compute(v.currentUserID, v.partnerID, snap, v.names.Resolve)

	v.mu.Lock()
	if v.closed || v.ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	v.latest = view
	v.mu.Unlock()

	if v.onView != nil {
		v.onView(view)
	}
	if v.partnerID != "" {
		v.marker.MarkDelivered(view.Transcript, v.currentUserID)
	}
}
