package repository

import (
	"context"
	"sync"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
)

// Subscription handle returned by LogSource.Subscribe, Close stops further deliveries
type Subscription interface {
	Close()
}

// LogSource 訊息 log 的即時訂閱
type LogSource interface {
	// Subscribe delivers the current log right away and again after every change.
	// handler runs on one goroutine, so snapshots never overlap.
	Subscribe(ctx context.Context, handler func(snap domain.Snapshot)) (Subscription, error)
	// Snapshot one-shot full read
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

type liveLog struct {
	repo MessageRepository
	feed ChangeFeed
}

// NewLiveLog create a LogSource that re-reads repo whenever feed reports a change
func NewLiveLog(repo MessageRepository, feed ChangeFeed) LogSource {
	return &liveLog{repo: repo, feed: feed}
}

func (l *liveLog) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	msgs, err := l.repo.FindAllOrdered(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Messages: msgs}, nil
}

type liveSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *liveSubscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (l *liveLog) Subscribe(ctx context.Context, handler func(snap domain.Snapshot)) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	// capacity 1: changes arriving while a read is in flight collapse into one re-read
	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	err := l.feed.Subscribe(subCtx, func(ev ChangeEvent) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &liveSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		var seq uint64
		for {
			select {
			case <-subCtx.Done():
				return
			case <-trigger:
			}

			msgs, err := l.repo.FindAllOrdered(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					logger.Log.Error("live log refresh failed", zap.Error(err))
				}
				continue
			}
			if subCtx.Err() != nil {
				return
			}
			seq++
			handler(domain.Snapshot{Seq: seq, Messages: msgs})
		}
	}()
	return sub, nil
}
