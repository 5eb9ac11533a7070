package editor

import (
	"fmt"
	"strings"

	"ruleboard/internal/model"
)

// Snapshot is an immutable view of every bucket. Order holds the declared bucket names.
type Snapshot struct {
	Order   []string
	Buckets map[string][]model.ItemInstance
}

func (s Snapshot) Get(bucket string) []model.ItemInstance {
	return s.Buckets[bucket]
}

// Locate returns the bucket and index holding instanceID.
func (s Snapshot) Locate(instanceID string) (string, int, bool) {
	for _, name := range s.Order {
		for i, it := range s.Buckets[name] {
			if it.InstanceID == instanceID {
				return name, i, true
			}
		}
	}
	return "", -1, false
}

func (s Snapshot) Total() int {
	n := 0
	for _, name := range s.Order {
		n += len(s.Buckets[name])
	}
	return n
}

// Clone deep-copies the snapshot so the receiver can't be mutated through the result.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Order:   append([]string(nil), s.Order...),
		Buckets: make(map[string][]model.ItemInstance, len(s.Buckets)),
	}
	for name, items := range s.Buckets {
		cp := make([]model.ItemInstance, 0, len(items))
		for _, it := range items {
			cp = append(cp, it.Clone())
		}
		out.Buckets[name] = cp
	}
	return out
}

// Listener observes the store. It is invoked synchronously after every state change and
// must not mutate the store.
type Listener func(Snapshot)

type subscription struct {
	id int
	fn Listener
}

// BucketStore maps bucket name -> ordered instances. Every mutation builds a new snapshot
// and swaps it in whole, so no observer ever sees an instance in two buckets or in none.
// Only changed buckets are copied; instances are never mutated in place.
type BucketStore struct {
	cur     Snapshot
	subs    []subscription
	nextSub int
}

func NewBucketStore(names []string) *BucketStore {
	s := &BucketStore{cur: Snapshot{Buckets: map[string][]model.ItemInstance{}}}
	for _, n := range names {
		if _, ok := s.cur.Buckets[n]; ok {
			continue
		}
		s.cur.Order = append(s.cur.Order, n)
		s.cur.Buckets[n] = []model.ItemInstance{}
	}
	return s
}

// Hydrate replaces the whole store (bucket set and contents) in one step.
func (s *BucketStore) Hydrate(buckets []model.Bucket) error {
	next := Snapshot{Buckets: make(map[string][]model.ItemInstance, len(buckets))}
	seen := map[string]string{}
	for _, b := range buckets {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return fmt.Errorf("hydrate: empty bucket name")
		}
		if _, dup := next.Buckets[name]; dup {
			return fmt.Errorf("hydrate: duplicate bucket %q", name)
		}
		items := make([]model.ItemInstance, 0, len(b.Instances))
		for _, it := range b.Instances {
			if prev, dup := seen[it.InstanceID]; dup {
				return fmt.Errorf("hydrate: instance %s in both %q and %q: %w", it.InstanceID, prev, name, ErrDuplicateInstance)
			}
			seen[it.InstanceID] = name
			items = append(items, it.Clone())
		}
		next.Order = append(next.Order, name)
		next.Buckets[name] = items
	}
	s.commit(next)
	return nil
}

func (s *BucketStore) Names() []string {
	return append([]string(nil), s.cur.Order...)
}

func (s *BucketStore) HasBucket(name string) bool {
	_, ok := s.cur.Buckets[name]
	return ok
}

// Get returns a copy of the bucket's ordered instances (nil for an unknown bucket).
func (s *BucketStore) Get(bucket string) []model.ItemInstance {
	items, ok := s.cur.Buckets[bucket]
	if !ok {
		return nil
	}
	out := make([]model.ItemInstance, 0, len(items))
	for _, it := range items {
		out = append(out, it.Clone())
	}
	return out
}

func (s *BucketStore) Locate(instanceID string) (string, int, bool) {
	return s.cur.Locate(instanceID)
}

func (s *BucketStore) Has(instanceID string) bool {
	_, _, ok := s.cur.Locate(instanceID)
	return ok
}

func (s *BucketStore) Snapshot() Snapshot {
	return s.cur.Clone()
}

// Reorder moves instanceID to newIndex within bucket. The index is clamped to the valid
// range after removal. Returns false (no-op) when the instance is not in bucket.
func (s *BucketStore) Reorder(bucket, instanceID string, newIndex int) bool {
	items, ok := s.cur.Buckets[bucket]
	if !ok {
		return false
	}
	from := indexOf(items, instanceID)
	if from < 0 {
		return false
	}
	rest := without(items, from)
	to := clamp(newIndex, 0, len(rest))
	if to == from {
		return false
	}
	s.commit(s.cur.with(bucket, insertAt(rest, items[from], to)))
	return true
}

// MoveAcrossBuckets transfers ownership of instanceID from one bucket to another in a
// single state transition. A negative targetIndex appends.
func (s *BucketStore) MoveAcrossBuckets(fromBucket, toBucket, instanceID string, targetIndex int) bool {
	if fromBucket == toBucket {
		if targetIndex < 0 {
			targetIndex = len(s.cur.Buckets[fromBucket])
		}
		return s.Reorder(fromBucket, instanceID, targetIndex)
	}
	src, ok := s.cur.Buckets[fromBucket]
	if !ok {
		return false
	}
	dst, ok := s.cur.Buckets[toBucket]
	if !ok {
		return false
	}
	from := indexOf(src, instanceID)
	if from < 0 {
		return false
	}
	to := len(dst)
	if targetIndex >= 0 {
		to = clamp(targetIndex, 0, len(dst))
	}
	next := s.cur.with(fromBucket, without(src, from))
	next.Buckets[toBucket] = insertAt(dst, src[from], to)
	s.commit(next)
	return true
}

// Insert places a newly created instance. A negative targetIndex appends.
func (s *BucketStore) Insert(bucket string, inst model.ItemInstance, targetIndex int) error {
	items, ok := s.cur.Buckets[bucket]
	if !ok {
		return fmt.Errorf("insert into %q: %w", bucket, ErrUnknownBucket)
	}
	if strings.TrimSpace(inst.InstanceID) == "" {
		return fmt.Errorf("insert into %q: empty instance id", bucket)
	}
	if s.Has(inst.InstanceID) {
		return fmt.Errorf("insert %s: %w", inst.InstanceID, ErrDuplicateInstance)
	}
	to := len(items)
	if targetIndex >= 0 {
		to = clamp(targetIndex, 0, len(items))
	}
	s.commit(s.cur.with(bucket, insertAt(items, inst.Clone(), to)))
	return nil
}

// Remove deletes instanceID from whichever bucket holds it. Returns false when not found.
func (s *BucketStore) Remove(instanceID string) bool {
	bucket, i, ok := s.cur.Locate(instanceID)
	if !ok {
		return false
	}
	s.commit(s.cur.with(bucket, without(s.cur.Buckets[bucket], i)))
	return true
}

// UpdateValues replaces the parameter values of an existing instance without changing its
// identity or position. Returns false when the instance is gone.
func (s *BucketStore) UpdateValues(instanceID string, values map[string]string) bool {
	bucket, i, ok := s.cur.Locate(instanceID)
	if !ok {
		return false
	}
	items := append([]model.ItemInstance(nil), s.cur.Buckets[bucket]...)
	updated := items[i].Clone()
	updated.Values = model.CopyValues(values)
	items[i] = updated
	s.commit(s.cur.with(bucket, items))
	return true
}

// Subscribe registers fn for change notifications. The returned func unsubscribes.
func (s *BucketStore) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *BucketStore) commit(next Snapshot) {
	s.cur = next
	subs := append([]subscription(nil), s.subs...)
	for _, sub := range subs {
		sub.fn(s.cur.Clone())
	}
}

// with returns a shallow copy of the snapshot with bucket replaced by items.
func (s Snapshot) with(bucket string, items []model.ItemInstance) Snapshot {
	next := Snapshot{
		Order:   s.Order,
		Buckets: make(map[string][]model.ItemInstance, len(s.Buckets)),
	}
	for k, v := range s.Buckets {
		next.Buckets[k] = v
	}
	next.Buckets[bucket] = items
	return next
}

func indexOf(items []model.ItemInstance, instanceID string) int {
	for i := range items {
		if items[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func without(items []model.ItemInstance, i int) []model.ItemInstance {
	out := make([]model.ItemInstance, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insertAt(items []model.ItemInstance, it model.ItemInstance, i int) []model.ItemInstance {
	out := make([]model.ItemInstance, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, it)
	return append(out, items[i:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
