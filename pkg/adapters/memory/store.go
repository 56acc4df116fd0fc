package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// entry is one key slot: either a hash or a typed value.
type entry struct {
	hash  map[string]string
	vt    ports.ValueType
	value any
}

// Store implements ports.Host, ports.FieldSwapper and ports.Notifier in memory.
// Safe for concurrent use. Notifications are delivered synchronously, after
// the mutation is visible and outside the store lock, so handlers may call
// back into the store.
type Store struct {
	mu    sync.RWMutex
	data  map[string]*entry
	types map[string]ports.ValueType

	subsMu sync.RWMutex
	subs   map[uint64]ports.NotificationHandler
	nextID uint64
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:  make(map[string]*entry),
		types: make(map[string]ports.ValueType),
		subs:  make(map[uint64]ports.NotificationHandler),
	}
}

// RegisterType makes vt known to Restore. PutValue registers its type implicitly.
func (s *Store) RegisterType(vt ports.ValueType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[vt.Name()] = vt
}

// GetField reads one attribute of a hash.
func (s *Store) GetField(ctx context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return "", false, nil
	}
	if e.hash == nil {
		return "", false, domain.ErrWrongType
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

// SetField writes one attribute, creating the hash if needed.
func (s *Store) SetField(ctx context.Context, key, field, value string) error {
	s.mu.Lock()
	h, err := s.hashForWrite(key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	h[field] = value
	s.mu.Unlock()

	s.notify(ctx, domain.EventHSet, key)
	return nil
}

// SetFieldIfAbsent writes the attribute only if it does not exist yet.
func (s *Store) SetFieldIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	h, err := s.hashForWrite(key)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if _, exists := h[field]; exists {
		s.mu.Unlock()
		return false, nil
	}
	h[field] = value
	s.mu.Unlock()

	s.notify(ctx, domain.EventHSetNX, key)
	return true, nil
}

// SwapField sets field to next only if it currently holds prev.
func (s *Store) SwapField(ctx context.Context, key, field, prev, next string) (bool, error) {
	s.mu.Lock()
	e, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if e.hash == nil {
		s.mu.Unlock()
		return false, domain.ErrWrongType
	}
	if cur, exists := e.hash[field]; !exists || cur != prev {
		s.mu.Unlock()
		return false, nil
	}
	e.hash[field] = next
	s.mu.Unlock()

	s.notify(ctx, domain.EventHSet, key)
	return true, nil
}

// DeleteField removes one attribute. The hash disappears with its last field.
func (s *Store) DeleteField(ctx context.Context, key, field string) error {
	s.mu.Lock()
	e, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if e.hash == nil {
		s.mu.Unlock()
		return domain.ErrWrongType
	}
	if _, exists := e.hash[field]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(e.hash, field)
	if len(e.hash) == 0 {
		delete(s.data, key)
	}
	s.mu.Unlock()

	s.notify(ctx, domain.EventHDel, key)
	return nil
}

// Fields returns a copy of every attribute of the hash.
func (s *Store) Fields(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return map[string]string{}, nil
	}
	if e.hash == nil {
		return nil, domain.ErrWrongType
	}
	return maps.Clone(e.hash), nil
}

// PutValue stores a private copy of v, releasing the value it replaces.
func (s *Store) PutValue(ctx context.Context, key string, vt ports.ValueType, v any) error {
	// Round-trip through the type hooks so the store exclusively owns its copy.
	owned, err := copyValue(vt, v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if e, ok := s.data[key]; ok && e.hash != nil {
		s.mu.Unlock()
		vt.Release(owned)
		return domain.ErrWrongType
	}
	prev := s.data[key]
	s.data[key] = &entry{vt: vt, value: owned}
	s.types[vt.Name()] = vt
	s.mu.Unlock()

	if prev != nil {
		prev.vt.Release(prev.value)
	}
	s.notify(ctx, "set", key)
	return nil
}

// GetValue returns a copy of the value stored under key.
func (s *Store) GetValue(ctx context.Context, key string, vt ports.ValueType) (any, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	if !ok {
		s.mu.RUnlock()
		return nil, domain.ErrNotFound
	}
	if e.hash != nil || e.vt.Name() != vt.Name() {
		s.mu.RUnlock()
		return nil, domain.ErrWrongType
	}
	data, err := e.vt.Encode(e.value)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return vt.Decode(data)
}

// DeleteValue removes and releases the value under key.
func (s *Store) DeleteValue(ctx context.Context, key string) error {
	s.mu.Lock()
	e, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if e.hash != nil {
		s.mu.Unlock()
		return domain.ErrWrongType
	}
	delete(s.data, key)
	s.mu.Unlock()

	e.vt.Release(e.value)
	s.notify(ctx, domain.EventDel, key)
	return nil
}

// Delete removes any key, releasing it if it holds a typed value.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	e, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if e.vt != nil {
		e.vt.Release(e.value)
	}
	s.notify(ctx, domain.EventDel, key)
	return nil
}

// Flush empties the store and releases every typed value.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	old := s.data
	s.data = make(map[string]*entry)
	s.mu.Unlock()

	releaseAll(old)
	s.notify(ctx, domain.EventFlush, "")
	return nil
}

// Keys lists every key currently stored.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Subscribe registers a handler for write notifications.
func (s *Store) Subscribe(ctx context.Context, handler ports.NotificationHandler) (ports.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("memory: nil notification handler")
	}
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = handler
	s.subsMu.Unlock()

	var once sync.Once
	return ports.SubscriptionFunc(func() error {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
		return nil
	}), nil
}

func (s *Store) hashForWrite(key string) (map[string]string, error) {
	e, ok := s.data[key]
	if !ok {
		e = &entry{hash: make(map[string]string)}
		s.data[key] = e
	}
	if e.hash == nil {
		return nil, domain.ErrWrongType
	}
	return e.hash, nil
}

func (s *Store) notify(ctx context.Context, event, key string) {
	s.subsMu.RLock()
	handlers := make([]ports.NotificationHandler, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.subsMu.RUnlock()

	n := domain.Notification{Kind: domain.KindOf(event), Event: event, Key: key}
	for _, h := range handlers {
		h(ctx, n)
	}
}

func copyValue(vt ports.ValueType, v any) (any, error) {
	data, err := vt.Encode(v)
	if err != nil {
		return nil, err
	}
	return vt.Decode(data)
}

func releaseAll(data map[string]*entry) {
	for _, e := range data {
		if e.vt != nil {
			e.vt.Release(e.value)
		}
	}
}
