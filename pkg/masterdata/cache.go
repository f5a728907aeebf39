package masterdata

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"ledgerbot/pkg/ingestion"
	"ledgerbot/pkg/metrics"
)

// Source fetches master data from the backend.
type Source interface {
	FetchMasterData(ctx context.Context) (ingestion.MasterData, error)
}

// Snapshot is an immutable copy of branches and categories taken by one refresh.
type Snapshot struct {
	Branches   []ingestion.Branch
	Categories []ingestion.Category
	FetchedAt  time.Time
}

// BranchesOfType returns a new slice with the branches of branchType, in backend order.
func (s *Snapshot) BranchesOfType(branchType string) []ingestion.Branch {
	if s == nil {
		return nil
	}
	var out []ingestion.Branch
	for _, b := range s.Branches {
		if b.BranchType == branchType {
			out = append(out, b)
		}
	}
	return out
}

// CategoriesOfType returns a new slice with the categories of transactionType, in backend order.
func (s *Snapshot) CategoriesOfType(transactionType string) []ingestion.Category {
	if s == nil {
		return nil
	}
	var out []ingestion.Category
	for _, c := range s.Categories {
		if c.TransactionType == transactionType {
			out = append(out, c)
		}
	}
	return out
}

// Cache holds the latest snapshot. Readers never block; refreshes are serialized and
// replace the snapshot wholesale, so a failed refresh leaves the previous one untouched.
type Cache struct {
	source    Source
	current   atomic.Pointer[Snapshot]
	refreshMu sync.Mutex
	now       func() time.Time
}

func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		now:    time.Now,
	}
}

// Refresh fetches and swaps in a new snapshot. The error is returned for operator
// surfaces; the conversation layer ignores it and inspects Get instead.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	data, err := c.source.FetchMasterData(ctx)
	metrics.MasterDataRefreshes.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[masterdata.Refresh] fetch failed, keeping previous snapshot: %v", err)
		return err
	}

	snap := &Snapshot{
		Branches:   append([]ingestion.Branch(nil), data.Branches...),
		Categories: append([]ingestion.Category(nil), data.Categories...),
		FetchedAt:  c.now(),
	}
	c.current.Store(snap)
	log.Printf("[masterdata.Refresh] loaded %d branches, %d categories", len(snap.Branches), len(snap.Categories))
	return nil
}

// Get returns the current snapshot; ok is false until a refresh has succeeded.
func (c *Cache) Get() (*Snapshot, bool) {
	snap := c.current.Load()
	return snap, snap != nil
}

// EnsureLoaded refreshes once when the cache is absent or has no branches and reports
// whether usable master data is available afterwards.
func (c *Cache) EnsureLoaded(ctx context.Context) (*Snapshot, bool) {
	if snap, ok := c.Get(); ok && len(snap.Branches) > 0 {
		return snap, true
	}
	_ = c.Refresh(ctx)
	snap, ok := c.Get()
	if !ok || len(snap.Branches) == 0 {
		return snap, false
	}
	return snap, true
}
