package bounty

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps members and bounties in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	members  map[MemberID]*Member
	bounties map[BountyID]*Bounty
	lastID   BountyID
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:  make(map[MemberID]*Member),
		bounties: make(map[BountyID]*Bounty),
		now:      time.Now,
	}
}

// Update applies fn's writes only if fn returns nil.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, members: map[MemberID]*Member{}, bounties: map[BountyID]*Bounty{}, lastID: s.lastID, writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	for id, m := range tx.members {
		s.members[id] = m
	}
	for id, b := range tx.bounties {
		s.bounties[id] = b
	}
	s.lastID = tx.lastID
	return nil
}

// View runs fn against a read-only transaction. Members first seen inside a
// View are created but not retained.
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{store: s, members: map[MemberID]*Member{}, bounties: map[BountyID]*Bounty{}, lastID: s.lastID})
}

// memTx buffers writes until the enclosing Update commits.
type memTx struct {
	store    *MemoryStore
	members  map[MemberID]*Member
	bounties map[BountyID]*Bounty
	lastID   BountyID
	writable bool
}

func (t *memTx) GetOrCreateMember(id MemberID) (*Member, error) {
	if id == "" {
		return nil, fmt.Errorf("member id is required")
	}
	if m, ok := t.members[id]; ok {
		return m.Clone(), nil
	}
	if m, ok := t.store.members[id]; ok {
		return m.Clone(), nil
	}
	m := NewMember(id)
	t.members[id] = m.Clone()
	return m, nil
}

func (t *memTx) PutMember(m *Member) error {
	if !t.writable {
		return fmt.Errorf("memstore: write in read-only transaction")
	}
	if m == nil || m.ID == "" {
		return fmt.Errorf("memstore: member id is required")
	}
	t.members[m.ID] = m.Clone()
	return nil
}

func (t *memTx) InsertBounty(b *Bounty) error {
	if !t.writable {
		return fmt.Errorf("memstore: write in read-only transaction")
	}
	t.lastID++
	b.ID = t.lastID
	now := t.store.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	t.bounties[b.ID] = b.Clone()
	return nil
}

func (t *memTx) Bounty(id BountyID) (*Bounty, error) {
	if b, ok := t.bounties[id]; ok {
		return b.Clone(), nil
	}
	if b, ok := t.store.bounties[id]; ok {
		return b.Clone(), nil
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

func (t *memTx) PutBounty(b *Bounty) error {
	if !t.writable {
		return fmt.Errorf("memstore: write in read-only transaction")
	}
	if _, err := t.Bounty(b.ID); err != nil {
		return err
	}
	b.UpdatedAt = t.store.now()
	t.bounties[b.ID] = b.Clone()
	return nil
}

func (t *memTx) merged() map[BountyID]*Bounty {
	all := make(map[BountyID]*Bounty, len(t.store.bounties)+len(t.bounties))
	for id, b := range t.store.bounties {
		all[id] = b
	}
	for id, b := range t.bounties {
		all[id] = b
	}
	return all
}

func (t *memTx) Bounties(f Filter) ([]*Bounty, error) {
	var out []*Bounty
	for _, b := range t.merged() {
		if f.Match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) BountyByExternalRef(ref string) (*Bounty, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty external ref: %w", ErrNotFound)
	}
	// The newest bounty wins when refs collide, as in the SQL store.
	var found *Bounty
	for _, b := range t.merged() {
		if b.ExternalRef == ref && (found == nil || b.ID > found.ID) {
			found = b
		}
	}
	if found == nil {
		return nil, fmt.Errorf("external ref %s: %w", ref, ErrNotFound)
	}
	return found.Clone(), nil
}
