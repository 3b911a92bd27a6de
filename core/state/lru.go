package state

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morebtcg/bcos-executor-sub001/log"
	"github.com/morebtcg/bcos-executor-sub001/metrics"
)

// DefaultMaxCapacity is the default byte-capacity budget for a CacheLayer
// (spec.md §4.2).
const DefaultMaxCapacity = 256 * 1024 * 1024

// lruHits/lruMisses are shared across every CacheLayer in the process:
// registered once against metrics.Registry rather than per instance, since
// a block can spin up many short-lived CacheLayers and Prometheus collector
// names must be unique per process.
var (
	lruHits = metrics.NewCounter(prometheus.CounterOpts{
		Name: "bcos_executor_lru_hits_total",
		Help: "LRU cache layer hits across all layers. Non-normative (spec.md §9): not used for any correctness decision.",
	})
	lruMisses = metrics.NewCounter(prometheus.CounterOpts{
		Name: "bcos_executor_lru_misses_total",
		Help: "LRU cache layer misses across all layers. Non-normative (spec.md §9).",
	})
)

// CacheLayer specializes Layer with a most-recently-used index: every
// successful read/write enqueues its (table, key) onto a bounded MPSC
// queue; a dedicated worker relocates the key to the tail of an LRU index
// and, while Capacity() exceeds MaxCapacity, PURGEs the coldest keys
// (spec.md §4.2).
type CacheLayer struct {
	*Layer

	maxCapacity uint64
	queue       chan cacheOp
	index       *lru.LRU[tableKey, struct{}]
	doneCh      chan struct{}
	stopOnce    sync.Once
}

type cacheOpKind int

const (
	opTouch cacheOpKind = iota
	opStop
)

type cacheOp struct {
	kind cacheOpKind
	key  tableKey
}

// NewCacheLayer wraps parent with an LRU eviction policy bounded at
// maxCapacity bytes (0 selects DefaultMaxCapacity) and starts the
// dedicated eviction worker.
func NewCacheLayer(parent Reader, maxCapacity uint64) *CacheLayer {
	if maxCapacity == 0 {
		maxCapacity = DefaultMaxCapacity
	}
	c := &CacheLayer{
		Layer:       NewLayer(parent, true),
		maxCapacity: maxCapacity,
		queue:       make(chan cacheOp, 4096),
		doneCh:      make(chan struct{}),
	}
	// The index's own entry-count capacity is left effectively unbounded:
	// eviction is driven by Layer.Capacity() byte accounting in the worker
	// loop below, not by simplelru's own count-based policy.
	index, _ := lru.NewLRU[tableKey, struct{}](1<<30, nil)
	c.index = index
	go c.run()
	return c
}

func (c *CacheLayer) GetRow(ctx context.Context, table, key string) (*Entry, error) {
	e, err := c.Layer.GetRow(ctx, table, key)
	if err == nil {
		c.touch(table, key, e != nil)
	}
	return e, err
}

func (c *CacheLayer) GetRows(ctx context.Context, table string, keys []string) ([]*Entry, error) {
	out, err := c.Layer.GetRows(ctx, table, keys)
	if err == nil {
		for i, k := range keys {
			c.touch(table, k, out[i] != nil)
		}
	}
	return out, err
}

func (c *CacheLayer) SetRow(ctx context.Context, table, key string, entry *Entry) error {
	err := c.Layer.SetRow(ctx, table, key, entry)
	if err == nil {
		c.touch(table, key, true)
	}
	return err
}

func (c *CacheLayer) touch(table, key string, hit bool) {
	if hit {
		lruHits.Inc()
	} else {
		lruMisses.Inc()
	}
	select {
	case c.queue <- cacheOp{kind: opTouch, key: tableKey{table, key}}:
	default:
		// Queue full: best-effort per spec.md §4.2 ("eviction is
		// best-effort"). Dropping a touch only delays eventual eviction.
		log.Warn("state: LRU touch queue full, dropping touch", "table", table, "key", key)
	}
}

// run is the dedicated worker: it relocates touched keys to the tail of the
// index and, while capacity is exceeded, PURGEs the coldest entries. It
// polls with a 200ms backoff when the queue is empty (spec.md §4.2).
func (c *CacheLayer) run() {
	defer close(c.doneCh)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case op := <-c.queue:
			switch op.kind {
			case opStop:
				return
			case opTouch:
				c.index.Add(op.key, struct{}{})
				c.evictUntilUnderBudget()
			}
		case <-ticker.C:
			c.evictUntilUnderBudget()
		}
	}
}

func (c *CacheLayer) evictUntilUnderBudget() {
	for c.Layer.Capacity() > c.maxCapacity {
		k, _, ok := c.index.GetOldest()
		if !ok {
			return
		}
		c.index.RemoveOldest()
		purged := NewEntry(AccountSchema)
		purged.status = StatusPurged
		if t, ok := c.Layer.OpenTable(k.table); ok {
			purged = NewEntry(t.Schema)
			purged.status = StatusPurged
		}
		_ = c.Layer.SetRow(context.Background(), k.table, k.key, purged)
	}
}

// Stop enqueues a sentinel and joins the worker goroutine. Safe to call
// more than once.
func (c *CacheLayer) Stop() {
	c.stopOnce.Do(func() {
		c.queue <- cacheOp{kind: opStop}
		<-c.doneCh
	})
}
