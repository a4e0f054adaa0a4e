package app

import (
	"context"
	"errors"
	"sync"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"
	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PartnerNameCache 每個 view 一份的名稱快取, 只增不減, view 關閉時丟棄
type PartnerNameCache struct {
	profiles repository.ProfileRepository
	parallel int

	mu    sync.RWMutex
	names map[string]string
}

// NewPartnerNameCache create PartnerNameCache, parallel bounds concurrent lookups
func NewPartnerNameCache(profiles repository.ProfileRepository, parallel int) *PartnerNameCache {
	if parallel <= 0 {
		parallel = 1
	}
	return &PartnerNameCache{
		profiles: profiles,
		parallel: parallel,
		names:    make(map[string]string),
	}
}

// Prefetch looks up every distinct id that is not cached yet, one lookup per id.
// A failed lookup is logged and left out of the cache so a later pass can try again.
func (c *PartnerNameCache) Prefetch(ctx context.Context, partnerIDs []string) {
	missing := c.missing(partnerIDs)
	if len(missing) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(c.parallel)
	for _, id := range missing {
		id := id
		g.Go(func() error {
			name, err := c.profiles.FindName(ctx, id)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Log.Warn(domain.ErrProfileLookup.Error(), zap.String("partnerID", id), zap.Error(err))
				}
				return nil
			}
			if name == "" {
				return nil
			}
			c.mu.Lock()
			c.names[id] = name
			c.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// Resolve profile name when known, otherwise fallback
func (c *PartnerNameCache) Resolve(partnerID, fallback string) string {
	c.mu.RLock()
	name, ok := c.names[partnerID]
	c.mu.RUnlock()
	if ok {
		return name
	}
	return fallback
}

func (c *PartnerNameCache) missing(ids []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := c.names[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
