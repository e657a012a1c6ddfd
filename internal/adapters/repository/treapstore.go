package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: StartsAt ASC, then PostID ASC (deterministic). In-order traversal
// yields the query order directly. Records are values replaced whole under the
// write lock, so a reader holding the read lock never sees a partial record.

// instant is a time split into unix seconds and nanoseconds, which stays
// ordered over the whole time.Time range where UnixNano would overflow.
type instant struct {
	sec  int64
	nsec int32
}

func instantOf(t time.Time) instant {
	return instant{sec: t.Unix(), nsec: int32(t.Nanosecond())}
}

func (a instant) before(b instant) bool {
	if a.sec != b.sec {
		return a.sec < b.sec
	}
	return a.nsec < b.nsec
}

type key struct {
	start  instant
	postID int64
}

func keyOf(rec model.EventRecord) key {
	return key{start: instantOf(rec.StartsAt), postID: rec.PostID}
}

func (a key) less(b key) bool {
	if a.start != b.start {
		return a.start.before(b.start)
	}
	return a.postID < b.postID
}

// treap node
type node struct {
	key   key
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, k key) *node {
	if n == nil {
		return &node{key: k, prio: rand.Uint64(), size: 1}
	}
	if k.less(n.key) {
		n.left = insert(n.left, k)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, k)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, k key) *node {
	if n == nil {
		return nil
	}
	switch {
	case k == n.key:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, k)
		}
	case k.less(n.key):
		n.left = deleteNode(n.left, k)
	default:
		n.right = deleteNode(n.right, k)
	}
	fix(n)
	return n
}

// collect appends up to q.Limit matching records in key order, skipping
// subtrees that lie entirely before the lower bound. A nil bound matches all.
func collect(n *node, from *instant, q Query, byID map[int64]model.EventRecord, out *[]model.EventRecord) {
	if n == nil || len(*out) >= q.Limit {
		return
	}
	inRange := from == nil || !n.key.start.before(*from)
	if inRange {
		collect(n.left, from, q, byID, out)
	}
	if len(*out) >= q.Limit {
		return
	}
	if inRange {
		if rec, ok := byID[n.key.postID]; ok && (q.Visibility == "" || rec.Visibility == q.Visibility) {
			*out = append(*out, cloneRecord(rec))
		}
	}
	collect(n.right, from, q, byID, out)
}

// TreapStore is the default in-memory index.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[int64]model.EventRecord

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store and starts its metrics updater,
// which stops when ctx is done or Close is called.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:                  make(map[int64]model.EventRecord),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops background goroutines.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Upsert implements Store.Upsert in O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, rec model.EventRecord) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := Validate(rec); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_record")
		return err
	}
	rec = cloneRecord(rec)

	s.mu.Lock()
	if old, ok := s.byID[rec.PostID]; ok {
		s.root = deleteNode(s.root, keyOf(old))
	}
	s.byID[rec.PostID] = rec
	s.root = insert(s.root, keyOf(rec))
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateIndexRecords(n)
	return nil
}

// Delete implements Store.Delete.
func (s *TreapStore) Delete(ctx context.Context, postID int64) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	old, ok := s.byID[postID]
	if ok {
		s.root = deleteNode(s.root, keyOf(old))
		delete(s.byID, postID)
	}
	n := len(s.byID)
	s.mu.Unlock()

	if ok {
		metrics.UpdateIndexRecords(n)
	}
	return ok, nil
}

// Get implements Store.Get.
func (s *TreapStore) Get(ctx context.Context, postID int64) (model.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[postID]
	if !ok {
		return model.EventRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Query implements Store.Query.
func (s *TreapStore) Query(ctx context.Context, q Query) ([]model.EventRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := validateQuery(q); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, err
	}
	var from *instant
	if q.After != nil {
		bound := instantOf(*q.After)
		from = &bound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.EventRecord, 0, min(q.Limit, len(s.byID)))
	collect(s.root, from, q, s.byID, &out)
	return out, nil
}

// Count returns the number of indexed records.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// startMetricsUpdater periodically republishes the record gauge.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdateIndexRecords(n)
			}
		}
	}()
}
