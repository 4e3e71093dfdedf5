package bounty

import "context"

// Filter narrows a bounty listing. The zero value matches everything.
type Filter struct {
	Status *Status
	IDs    []BountyID
}

// Match reports whether b satisfies the filter.
func (f Filter) Match(b *Bounty) bool {
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.IDs != nil {
		for _, id := range f.IDs {
			if id == b.ID {
				return true
			}
		}
		return false
	}
	return true
}

// Tx is the member registry and bounty store as seen inside one unit of work.
// Values returned are copies; changes are persisted with the Put methods.
type Tx interface {
	// GetOrCreateMember returns the member, creating a default record first
	// if the id has never been seen.
	GetOrCreateMember(id MemberID) (*Member, error)
	PutMember(m *Member) error

	// InsertBounty assigns b the next sequential id and stores it.
	InsertBounty(b *Bounty) error
	// Bounty fails with ErrNotFound when id is unknown.
	Bounty(id BountyID) (*Bounty, error)
	PutBounty(b *Bounty) error
	// Bounties returns matching bounties ordered by id.
	Bounties(f Filter) ([]*Bounty, error)
	// BountyByExternalRef fails with ErrNotFound when no bounty holds ref.
	BountyByExternalRef(ref string) (*Bounty, error)
}

// Store owns members and bounties.
type Store interface {
	// Update runs fn atomically; an error from fn discards its writes.
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}
