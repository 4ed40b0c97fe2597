// pkg/enrollment/cache.go
package enrollment

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/David-Botos/unenrolled-users/pkg/metrics"
	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// snapshot is one immutable fill of the cache, indexed by company
type snapshot struct {
	byCompany map[string]model.Dataset
	rows      int
	fetchedAt time.Time
}

func newSnapshot(ds model.Dataset, fetchedAt time.Time) *snapshot {
	s := &snapshot{
		byCompany: make(map[string]model.Dataset),
		rows:      ds.Len(),
		fetchedAt: fetchedAt,
	}
	for _, row := range ds.Rows {
		company, ok := row[CompanyColumn].(string)
		if !ok {
			continue
		}
		part, exists := s.byCompany[company]
		if !exists {
			part = model.NewDataset(EmailColumn, CompanyColumn)
		}
		part.Rows = append(part.Rows, row)
		s.byCompany[company] = part
	}
	return s
}

func (s *snapshot) company(name string) model.Dataset {
	if ds, ok := s.byCompany[name]; ok {
		return ds
	}
	return model.NewDataset(EmailColumn, CompanyColumn)
}

// Stats describes the cache state
type Stats struct {
	Populated  bool      `json:"populated"`
	Rows       int       `json:"rows"`
	Companies  int       `json:"companies"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
	Fills      int64     `json:"fills"`
	Generation uint64    `json:"generation"`
}

// Cache holds the active enrollment of every configured company. It is filled by a
// single warehouse query on first use and kept until Clear.
//
// Reads of a populated cache are lock-free. Concurrent readers of an empty cache share
// one fill. A fill that started before Clear never publishes its result.
type Cache struct {
	warehouse Warehouse
	companies []string

	group      singleflight.Group
	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	fills      atomic.Int64
	publishMu  sync.Mutex // Orders publish against Clear; never held during I/O

	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCache creates an empty cache over the given companies
func NewCache(warehouse Warehouse, companies []string, logger *zap.Logger) (*Cache, error) {
	if warehouse == nil {
		return nil, errors.New("warehouse is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		warehouse: warehouse,
		companies: append([]string(nil), companies...),
		now:       time.Now,
		logger:    logger.Named("enrollment-cache"),
	}, nil
}

// WithMetrics sets the metrics collector
func (c *Cache) WithMetrics(m *metrics.Metrics) *Cache {
	c.metrics = m
	return c
}

// ClientEnrollment returns the active enrollment rows of company, with columns
// Email and Company. A company with no enrollment yields an empty dataset.
func (c *Cache) ClientEnrollment(ctx context.Context, company string) (model.Dataset, error) {
	if snap := c.current.Load(); snap != nil {
		c.metrics.ObserveCacheRead(true)
		return snap.company(company), nil
	}

	c.metrics.ObserveCacheRead(false)
	snap, err := c.fill(ctx)
	if err != nil {
		return model.Dataset{}, err
	}
	return snap.company(company), nil
}

// Warm fills the cache if it is empty
func (c *Cache) Warm(ctx context.Context) error {
	if c.current.Load() != nil {
		return nil
	}
	_, err := c.fill(ctx)
	return err
}

// Clear drops the cached enrollment. The next read queries the warehouse again.
func (c *Cache) Clear() {
	c.publishMu.Lock()
	c.generation.Add(1)
	c.current.Store(nil)
	c.publishMu.Unlock()

	c.metrics.ObserveCacheCleared()
	c.logger.Info("Enrollment cache cleared")
}

// Stats returns the cache state
func (c *Cache) Stats() Stats {
	stats := Stats{
		Fills:      c.fills.Load(),
		Generation: c.generation.Load(),
	}
	if snap := c.current.Load(); snap != nil {
		stats.Populated = true
		stats.Rows = snap.rows
		stats.Companies = len(snap.byCompany)
		stats.FetchedAt = snap.fetchedAt
	}
	return stats
}

func (c *Cache) fill(ctx context.Context) (*snapshot, error) {
	gen := c.generation.Load()

	// Callers after a Clear must not join a fill started before it
	key := "fill-" + strconv.FormatUint(gen, 10)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if snap := c.current.Load(); snap != nil {
			return snap, nil
		}

		c.logger.Info("Filling enrollment cache", zap.Strings("companies", c.companies))
		c.fills.Add(1)

		// Shared by every waiter, so not bound to this caller's cancellation
		ds, err := c.warehouse.QueryActiveEnrollment(context.WithoutCancel(ctx), c.companies)
		if err != nil {
			c.metrics.ObserveCacheFill("error", 0)
			return nil, model.NewError(model.KindCacheFetch, "fill_enrollment_cache", err)
		}

		snap := newSnapshot(ds, c.now())
		if c.publish(gen, snap) {
			c.metrics.ObserveCacheFill("success", snap.rows)
			c.logger.Info("Enrollment cache filled",
				zap.Int("rows", snap.rows),
				zap.Int("companies", len(snap.byCompany)))
		} else {
			c.metrics.ObserveCacheFill("discarded", snap.rows)
			c.logger.Info("Discarding enrollment fill started before a clear", zap.Int("rows", snap.rows))
		}
		return snap, nil
	})
	if err != nil {
		c.logger.Error("Failed to fill enrollment cache", zap.Error(err), zap.Bool("shared", shared))
		return nil, err
	}

	return v.(*snapshot), nil
}

func (c *Cache) publish(gen uint64, snap *snapshot) bool {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if c.generation.Load() != gen {
		return false
	}
	c.current.Store(snap)
	return true
}
