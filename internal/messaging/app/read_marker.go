package app

import (
	"context"
	"sync"
	"time"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"
	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReadMarker 將收到的訊息標為已讀
// 同一則訊息同時只會有一個寫入, 寫入成功後不會再寫
type ReadMarker struct {
	msgRepo  repository.MessageRepository
	feed     repository.ChangePublisher
	parallel int
	timeout  time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
	done     map[string]struct{}
	wg       sync.WaitGroup
}

// NewReadMarker create ReadMarker
func NewReadMarker(msgRepo repository.MessageRepository, feed repository.ChangePublisher, parallel int, timeout time.Duration) *ReadMarker {
	if parallel <= 0 {
		parallel = 1
	}
	return &ReadMarker{
		msgRepo:  msgRepo,
		feed:     feed,
		parallel: parallel,
		timeout:  timeout,
		inFlight: make(map[string]struct{}),
		done:     make(map[string]struct{}),
	}
}

// MarkDelivered dispatches one independent write per unread message addressed to currentUserID
// and returns how many writes were dispatched. It does not wait for them.
// Failures are logged; the id becomes eligible again on a later call.
func (r *ReadMarker) MarkDelivered(transcript []domain.Message, currentUserID string) int {
	ids := r.claim(domain.PendingReads(transcript, currentUserID))
	if len(ids) == 0 {
		return 0
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		var (
			g       errgroup.Group
			mu      sync.Mutex
			written int
		)
		g.SetLimit(r.parallel)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				ctx, cancel := r.writeContext()
				defer cancel()

				err := r.msgRepo.MarkRead(ctx, id)
				r.release(id, err == nil)
				if err != nil {
					logger.Log.Warn("mark read failed", zap.String("messageID", id), zap.String("userID", currentUserID),
						zap.Error(domain.NewStoreWriteFailure("mark_read", id, err)))
					return nil
				}
				mu.Lock()
				written++
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if written > 0 && r.feed != nil {
			ctx, cancel := r.writeContext()
			defer cancel()
			if err := r.feed.Publish(ctx, repository.ChangeEvent{Op: repository.ChangeRead}); err != nil {
				logger.Log.Warn("publish read change failed", zap.Error(err))
			}
		}
	}()
	return len(ids)
}

// Wait blocks until every dispatched write has finished
func (r *ReadMarker) Wait() {
	r.wg.Wait()
}

func (r *ReadMarker) claim(pending []domain.Message) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(pending))
	for i := range pending {
		id := pending[i].ID
		if id == "" {
			continue
		}
		if _, busy := r.inFlight[id]; busy {
			continue
		}
		if _, ok := r.done[id]; ok {
			continue
		}
		r.inFlight[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (r *ReadMarker) release(id string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
	if ok {
		r.done[id] = struct{}{}
	}
}

func (r *ReadMarker) writeContext() (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), r.timeout)
}
