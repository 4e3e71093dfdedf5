package bounty

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MemberID identifies a member by their platform account id.
type MemberID string

// BountyID is assigned sequentially by the store, starting at 1.
type BountyID uint64

func (id BountyID) String() string {
	return fmt.Sprintf("bounty_%d", uint64(id))
}

// ParseBountyID accepts both "bounty_12" and "12".
func ParseBountyID(s string) (BountyID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "bounty_")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid bounty id %q", s)
	}
	return BountyID(n), nil
}

// Role is the authorization level of a member.
type Role uint8

const (
	RoleMember Role = iota + 1
	RoleVerifier
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleVerifier:
		return "verifier"
	}
	return "unknown"
}

// ParseRole parses the String form of a role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member":
		return RoleMember, nil
	case "verifier":
		return RoleVerifier, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Type selects how a new bounty enters the board.
type Type uint8

const (
	TypeRegular Type = iota + 1
	TypeCommunity
	TypeResource
)

// Types lists every bounty type in display order.
var Types = []Type{TypeRegular, TypeCommunity, TypeResource}

func (t Type) String() string {
	switch t {
	case TypeRegular:
		return "regular"
	case TypeCommunity:
		return "community"
	case TypeResource:
		return "resource"
	}
	return "unknown"
}

// ParseType parses the String form of a bounty type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown bounty type %q", s)
}

// Status is a bounty's position in the lifecycle.
type Status uint8

const (
	StatusDraft Status = iota + 1
	StatusAwaitingVerification
	StatusPosted
	StatusClaimed
	StatusAwaitingPostVerification
	StatusVerified
	StatusRejected
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusAwaitingVerification,
	StatusPosted,
	StatusClaimed,
	StatusAwaitingPostVerification,
	StatusVerified,
	StatusRejected,
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusAwaitingVerification:
		return "awaiting_verification"
	case StatusPosted:
		return "posted"
	case StatusClaimed:
		return "claimed"
	case StatusAwaitingPostVerification:
		return "awaiting_post_verification"
	case StatusVerified:
		return "verified"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// ParseStatus parses the String form of a status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown bounty status %q", s)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusVerified, StatusRejected:
		return true
	case StatusDraft, StatusAwaitingVerification, StatusPosted, StatusClaimed, StatusAwaitingPostVerification:
		return false
	}
	return false
}

// HoldsAssignee reports whether a bounty in status s carries an assignee.
func (s Status) HoldsAssignee() bool {
	switch s {
	case StatusClaimed, StatusAwaitingPostVerification, StatusVerified:
		return true
	case StatusDraft, StatusAwaitingVerification, StatusPosted, StatusRejected:
		return false
	}
	return false
}

// Member is a registered participant of the board.
type Member struct {
	ID                MemberID
	Role              Role
	CreditDebt        int64
	AssignedBountyIDs []BountyID
}

// NewMember returns the default record for a member seen for the first time.
func NewMember(id MemberID) *Member {
	return &Member{ID: id, Role: RoleMember}
}

func (m *Member) IsVerifier() bool { return m.Role == RoleVerifier }

// CanPost fails with ErrDebtBlocked while the member owes credits.
func (m *Member) CanPost() error {
	if m.CreditDebt > 0 {
		return ErrDebtBlocked
	}
	return nil
}

// CanClaim checks debt first, then the single-assignment rule.
func (m *Member) CanClaim() error {
	if err := m.CanPost(); err != nil {
		return err
	}
	if len(m.AssignedBountyIDs) > 0 {
		return ErrAlreadyAssigned
	}
	return nil
}

func (m *Member) HasAssignment(id BountyID) bool {
	for _, a := range m.AssignedBountyIDs {
		if a == id {
			return true
		}
	}
	return false
}

func (m *Member) assign(id BountyID) {
	if m.HasAssignment(id) {
		return
	}
	m.AssignedBountyIDs = append(m.AssignedBountyIDs, id)
	sort.Slice(m.AssignedBountyIDs, func(i, j int) bool { return m.AssignedBountyIDs[i] < m.AssignedBountyIDs[j] })
}

func (m *Member) release(id BountyID) {
	out := m.AssignedBountyIDs[:0]
	for _, a := range m.AssignedBountyIDs {
		if a != id {
			out = append(out, a)
		}
	}
	m.AssignedBountyIDs = out
}

// Clone returns a deep copy.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	c := *m
	c.AssignedBountyIDs = append([]BountyID(nil), m.AssignedBountyIDs...)
	return &c
}

// Bounty is a unit of work posted to the board.
type Bounty struct {
	ID          BountyID
	CreatorID   MemberID
	Type        Type
	Status      Status
	Title       string
	Description string
	AssignedTo  MemberID
	VerifierID  MemberID
	ExternalRef string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b *Bounty) Assigned() bool { return b.AssignedTo != "" }

// Clone returns a copy safe to hand out of a store.
func (b *Bounty) Clone() *Bounty {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
