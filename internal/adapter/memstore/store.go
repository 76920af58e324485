// Package memstore is an in-memory object store used by tests and local
// dry runs.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

type object struct {
	data         []byte
	metadata     map[string]string
	lastModified time.Time
}

// Store implements domain.ObjectStore over a map. LastModified stamps come
// from the injected clock so recency filtering can be tested.
type Store struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	objects map[string]object
	calls   map[string]int
	faults  map[string]error
}

// New returns an empty store.
func New(clock clockwork.Clock) *Store {
	return &Store{
		clock:   clock,
		objects: make(map[string]object),
		calls:   make(map[string]int),
		faults:  make(map[string]error),
	}
}

// Calls reports how many times op ("list", "list_prefixes", "get", "put",
// "copy", "delete") has been invoked.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// FailOn makes every call of op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// SetModTime overrides the LastModified stamp of an existing key.
func (s *Store) SetModTime(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[key]; ok {
		o.lastModified = t
		s.objects[key] = o
	}
}

// Metadata returns a copy of the metadata stored with key.
func (s *Store) Metadata(key string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return maps.Clone(o.metadata), true
}

// Keys returns every stored key in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key exists.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// record counts a call and returns the injected fault for op, if any.
// Callers must hold mu for writing.
func (s *Store) record(op string) error {
	s.calls[op]++
	return s.faults[op]
}

func (s *Store) List(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("list"); err != nil {
		return nil, err
	}

	var out []domain.ObjectInfo
	for k, o := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.ObjectInfo{Key: k, LastModified: o.lastModified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) ListPrefixes(_ context.Context, prefix, delimiter string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("list_prefixes"); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for k := range s.objects {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if i := strings.Index(rest, delimiter); i >= 0 {
			seen[prefix+rest[:i+len(delimiter)]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("get"); err != nil {
		return nil, err
	}

	o, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), o.data...), nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("put"); err != nil {
		return err
	}

	s.objects[key] = object{
		data:         append([]byte(nil), data...),
		metadata:     maps.Clone(metadata),
		lastModified: s.clock.Now(),
	}
	return nil
}

func (s *Store) Copy(_ context.Context, src, dst string, metadata map[string]string, replaceMetadata bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("copy"); err != nil {
		return err
	}

	o, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, domain.ErrNotFound)
	}
	md := maps.Clone(o.metadata)
	if replaceMetadata {
		md = maps.Clone(metadata)
	}
	s.objects[dst] = object{
		data:         append([]byte(nil), o.data...),
		metadata:     md,
		lastModified: s.clock.Now(),
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("delete"); err != nil {
		return err
	}
	delete(s.objects, key)
	return nil
}
