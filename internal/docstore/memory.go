package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]map[string]map[string]any
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]map[string]map[string]any),
		clock: time.Now,
	}
}

// SetClock overrides the store clock. Test helper.
func (s *MemoryStore) SetClock(clock func() time.Time) { s.clock = clock }

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("marshal document: %w", err)
	}
	return Document{ID: id, Data: raw}, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := s.normalize(fields)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]map[string]any)
	}
	s.data[collection][id] = doc
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if v == DeleteField {
			delete(doc, k)
			continue
		}
		nv, err := s.normalizeValue(v)
		if err != nil {
			return err
		}
		doc[k] = nv
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		id  string
		doc map[string]any
	}
	var matched []entry
	for id, doc := range s.data[collection] {
		ok := true
		for _, f := range q.Filters {
			if !matchFilter(doc, f) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, entry{id: id, doc: doc})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i].doc[q.OrderBy], matched[j].doc[q.OrderBy])
			if q.Desc {
				return !less
			}
			return less
		})
	} else {
		// Deterministic order for callers that don't sort.
		sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Document, 0, len(matched))
	for _, e := range matched {
		raw, err := json.Marshal(e.doc)
		if err != nil {
			return nil, fmt.Errorf("marshal document: %w", err)
		}
		out = append(out, Document{ID: e.id, Data: raw})
	}
	return out, nil
}

func (s *MemoryStore) ArrayAppend(ctx context.Context, collection, id, field string, items ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := doc[field].([]any)
	for _, item := range items {
		nv, err := s.normalizeValue(item)
		if err != nil {
			return err
		}
		arr = append(arr, nv)
	}
	doc[field] = arr
	return nil
}

// normalize roundtrips fields through JSON so stored values match what the
// postgres implementation would hand back, and resolves write sentinels.
func (s *MemoryStore) normalize(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == DeleteField {
			continue
		}
		nv, err := s.normalizeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func (s *MemoryStore) normalizeValue(v any) (any, error) {
	if v == ServerTimestamp {
		v = s.clock().UTC()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal field: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal field: %w", err)
	}
	return out, nil
}

func matchFilter(doc map[string]any, f Filter) bool {
	got, ok := doc[f.Field]
	if !ok {
		return false
	}
	want, err := normalizeLiteral(f.Value)
	if err != nil {
		return false
	}
	switch f.Op {
	case OpEq:
		return reflect.DeepEqual(got, want)
	case OpArrayContains:
		arr, ok := got.([]any)
		if !ok {
			return false
		}
		for _, item := range arr {
			if reflect.DeepEqual(item, want) {
				return true
			}
		}
	}
	return false
}

func normalizeLiteral(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compareValues orders JSON values: timestamps parse as times, numbers as
// floats, everything else falls back to string comparison. Missing values
// sort first.
func compareValues(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		at, aerr := time.Parse(time.RFC3339Nano, as)
		bt, berr := time.Parse(time.RFC3339Nano, bs)
		if aerr == nil && berr == nil {
			return at.Before(bt)
		}
		return as < bs
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
