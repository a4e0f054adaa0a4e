package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"
)

// memStore in-memory MessageRepository + LogSource, counts MarkRead writes per id
type memStore struct {
	mu       sync.Mutex
	msgs     []domain.Message
	nextID   int
	clock    int64
	writes   map[string]int
	failRead map[string]error

	subsMu sync.Mutex
	subs   []chan struct{}
}

func newMemStore(msgs ...domain.Message) *memStore {
	return &memStore{
		msgs:     msgs,
		clock:    1000,
		writes:   make(map[string]int),
		failRead: make(map[string]error),
	}
}

func (s *memStore) FindAllOrdered(ctx context.Context) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.msgs))
	copy(out, s.msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[j].NewerThan(&out[i]) })
	return out, nil
}

func (s *memStore) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == messageID {
			m := s.msgs[i]
			return &m, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (s *memStore) Insert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	s.nextID++
	s.clock++
	stored := *msg
	stored.ID = fmt.Sprintf("new-%d", s.nextID)
	ts := time.Unix(s.clock, 0).UTC()
	stored.CreatedAt = &ts
	s.msgs = append(s.msgs, stored)
	s.mu.Unlock()

	s.notify()
	return &stored, nil
}

func (s *memStore) MarkRead(ctx context.Context, messageID string) error {
	s.mu.Lock()
	if err := s.failRead[messageID]; err != nil {
		s.mu.Unlock()
		return err
	}
	s.writes[messageID]++
	for i := range s.msgs {
		if s.msgs[i].ID == messageID {
			s.msgs[i].Read = true
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *memStore) Delete(ctx context.Context, messageID, senderID string) (bool, error) {
	s.mu.Lock()
	deleted := false
	for i := range s.msgs {
		if s.msgs[i].ID == messageID && s.msgs[i].SenderID == senderID {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			deleted = true
			break
		}
	}
	s.mu.Unlock()

	if deleted {
		s.notify()
	}
	return deleted, nil
}

func (s *memStore) writeCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[id]
}

func (s *memStore) totalWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.writes {
		n += c
	}
	return n
}

func (s *memStore) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *memStore) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	msgs, err := s.FindAllOrdered(ctx)
	return domain.Snapshot{Messages: msgs}, err
}

type memSub struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (m *memSub) Close() {
	m.cancel()
	<-m.done
}

// Subscribe same contract as the redis backed log: initial snapshot, then one per coalesced change
func (s *memStore) Subscribe(ctx context.Context, handler func(snap domain.Snapshot)) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	s.subsMu.Lock()
	s.subs = append(s.subs, trigger)
	s.subsMu.Unlock()

	sub := &memSub{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
			}
			msgs, _ := s.FindAllOrdered(ctx)
			if ctx.Err() != nil {
				return
			}
			seq++
			handler(domain.Snapshot{Seq: seq, Messages: msgs})
		}
	}()
	return sub, nil
}

func ts(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func textMessage(id, from, to, text string, read bool, sec int64) domain.Message {
	return domain.Message{ID: id, SenderID: from, ReceiverID: to, Kind: domain.MessageKindText, Text: text, Read: read, CreatedAt: ts(sec)}
}
