package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/pneumatic/internal/document"
)

type memorySlot struct {
	data      []byte
	hash      string
	createdAt time.Time
	updatedAt time.Time
}

// InMemorySlotStore implements SlotStore for testing and development.
// Documents are kept encoded, so loads never alias saved maps.
type InMemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string]memorySlot
}

// NewInMemorySlotStore creates a new in-memory store.
func NewInMemorySlotStore() *InMemorySlotStore {
	return &InMemorySlotStore{slots: make(map[string]memorySlot)}
}

// Save stores doc under name.
func (s *InMemorySlotStore) Save(ctx context.Context, name string, doc document.Doc) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, hash, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	created := now
	if prev, ok := s.slots[name]; ok {
		created = prev.createdAt
	}
	s.slots[name] = memorySlot{data: data, hash: hash, createdAt: created, updatedAt: now}
	return nil
}

// Load returns the slot called name. Returns nil if not found.
func (s *InMemorySlotStore) Load(ctx context.Context, name string) (*Slot, error) {
	s.mu.RLock()
	ms, ok := s.slots[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	doc, err := decode(ms.data)
	if err != nil {
		return nil, err
	}
	return &Slot{
		Name:        name,
		Doc:         doc,
		ContentHash: ms.hash,
		CreatedAt:   ms.createdAt,
		UpdatedAt:   ms.updatedAt,
	}, nil
}

// List returns every slot ordered by name.
func (s *InMemorySlotStore) List(ctx context.Context) ([]SlotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]SlotInfo, 0, len(s.slots))
	for name, ms := range s.slots {
		infos = append(infos, SlotInfo{
			Name:        name,
			ContentHash: ms.hash,
			Size:        len(ms.data),
			CreatedAt:   ms.createdAt,
			UpdatedAt:   ms.updatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete removes a slot.
func (s *InMemorySlotStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, name)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemorySlotStore) Close() error {
	return nil
}
