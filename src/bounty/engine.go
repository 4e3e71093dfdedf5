package bounty

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is the result of a successful engine operation. Bounty and Member
// are snapshots taken after the mutation committed; either may be nil.
type Outcome struct {
	Bounty     *Bounty
	Member     *Member
	Directives []Directive
}

// Engine decides which lifecycle transitions are legal, applies them to the
// store and reports what the adapters should render. Mutating operations are
// serialized, so every check-then-act sequence runs against a stable view.
type Engine struct {
	mu    sync.Mutex
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) update(ctx context.Context, fn func(tx Tx) (*Outcome, error)) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out *Outcome
	err := e.store.Update(ctx, func(tx Tx) error {
		o, err := fn(tx)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// event is a request to move a bounty along the state machine.
type event uint8

const (
	evPublish event = iota + 1
	evSubmit
	evApprove
	evReject
	evClaim
	evComplete
)

// next is the whole state machine. Terminal statuses accept no event.
func next(from Status, ev event) (Status, bool) {
	switch from {
	case StatusDraft:
		switch ev {
		case evPublish:
			return StatusPosted, true
		case evSubmit:
			return StatusAwaitingVerification, true
		}
	case StatusAwaitingVerification:
		switch ev {
		case evApprove:
			return StatusPosted, true
		case evReject:
			return StatusRejected, true
		}
	case StatusPosted:
		if ev == evClaim {
			return StatusClaimed, true
		}
	case StatusClaimed:
		if ev == evComplete {
			return StatusAwaitingPostVerification, true
		}
	case StatusAwaitingPostVerification:
		switch ev {
		case evApprove:
			return StatusVerified, true
		case evReject:
			return StatusRejected, true
		}
	case StatusVerified, StatusRejected:
	}
	return from, false
}

func advance(b *Bounty, required Status, ev event) error {
	if b.Status != required {
		return fmt.Errorf("%s is %s, want %s: %w", b.ID, b.Status, required, ErrInvalidState)
	}
	to, ok := next(b.Status, ev)
	if !ok {
		return fmt.Errorf("%s cannot leave %s: %w", b.ID, b.Status, ErrInvalidState)
	}
	b.Status = to
	return nil
}

// PostBounty creates a bounty for actor. Regular bounties go straight to the
// board and may only be posted by verifiers; community and resource bounties
// wait for pre-verification.
func (e *Engine) PostBounty(ctx context.Context, actorID MemberID, title, description string, typ Type) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		actor, err := tx.GetOrCreateMember(actorID)
		if err != nil {
			return nil, fmt.Errorf("post bounty: %w", err)
		}
		if err := actor.CanPost(); err != nil {
			return nil, fmt.Errorf("post bounty: member %s owes %d credits: %w", actor.ID, actor.CreditDebt, err)
		}

		var ev event
		switch typ {
		case TypeRegular:
			if !actor.IsVerifier() {
				return nil, fmt.Errorf("post bounty: regular bounties require a verifier: %w", ErrUnauthorized)
			}
			ev = evPublish
		case TypeCommunity, TypeResource:
			ev = evSubmit
		default:
			return nil, fmt.Errorf("post bounty: unknown bounty type %d", typ)
		}

		b := &Bounty{
			CreatorID:   actor.ID,
			Type:        typ,
			Status:      StatusDraft,
			Title:       title,
			Description: description,
		}
		if err := advance(b, StatusDraft, ev); err != nil {
			return nil, fmt.Errorf("post bounty: %w", err)
		}
		if err := tx.InsertBounty(b); err != nil {
			return nil, fmt.Errorf("post bounty: %w", err)
		}

		var d Directive = RenderVerificationRequest{Bounty: *b}
		if b.Status == StatusPosted {
			d = RenderOnBoard{Bounty: *b}
		}
		return &Outcome{Bounty: b, Member: actor, Directives: []Directive{d}}, nil
	})
}

// ClaimBounty assigns a posted bounty to actor.
func (e *Engine) ClaimBounty(ctx context.Context, actorID MemberID, id BountyID) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		b, err := tx.Bounty(id)
		if err != nil {
			return nil, fmt.Errorf("claim bounty: %w", err)
		}
		if b.Status != StatusPosted {
			return nil, fmt.Errorf("claim bounty: %s is %s: %w", b.ID, b.Status, ErrInvalidState)
		}
		actor, err := tx.GetOrCreateMember(actorID)
		if err != nil {
			return nil, fmt.Errorf("claim bounty: %w", err)
		}
		if err := actor.CanClaim(); err != nil {
			return nil, fmt.Errorf("claim bounty: member %s: %w", actor.ID, err)
		}

		if err := advance(b, StatusPosted, evClaim); err != nil {
			return nil, fmt.Errorf("claim bounty: %w", err)
		}
		b.AssignedTo = actor.ID
		actor.assign(b.ID)

		if err := tx.PutBounty(b); err != nil {
			return nil, fmt.Errorf("claim bounty: %w", err)
		}
		if err := tx.PutMember(actor); err != nil {
			return nil, fmt.Errorf("claim bounty: %w", err)
		}
		return &Outcome{Bounty: b, Member: actor, Directives: []Directive{RenderOnBoard{Bounty: *b}}}, nil
	})
}

// ReviewPreVerification approves or rejects a bounty waiting to enter the
// board. Only verifiers may review.
func (e *Engine) ReviewPreVerification(ctx context.Context, verifierID MemberID, id BountyID, approve bool) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		verifier, err := tx.GetOrCreateMember(verifierID)
		if err != nil {
			return nil, fmt.Errorf("review pre-verification: %w", err)
		}
		if !verifier.IsVerifier() {
			return nil, fmt.Errorf("review pre-verification: member %s is not a verifier: %w", verifier.ID, ErrUnauthorized)
		}
		b, err := tx.Bounty(id)
		if err != nil {
			return nil, fmt.Errorf("review pre-verification: %w", err)
		}

		ev := evReject
		if approve {
			ev = evApprove
		}
		if err := advance(b, StatusAwaitingVerification, ev); err != nil {
			return nil, fmt.Errorf("review pre-verification: %w", err)
		}

		var directives []Directive
		if approve {
			b.VerifierID = verifier.ID
			directives = []Directive{
				RenderApproval{Bounty: *b, By: verifier.ID},
				RenderOnBoard{Bounty: *b},
			}
		} else {
			about := b.ID
			directives = []Directive{
				RenderRejection{Bounty: *b, By: verifier.ID},
				NotifyDirectMessage{
					Member: b.CreatorID,
					Text:   fmt.Sprintf("Your bounty %s (%q) was rejected during verification.", b.ID, b.Title),
					About:  &about,
				},
			}
		}
		if err := tx.PutBounty(b); err != nil {
			return nil, fmt.Errorf("review pre-verification: %w", err)
		}
		return &Outcome{Bounty: b, Member: verifier, Directives: directives}, nil
	})
}

// RequestCompletionVerification is raised by the assignee once the work is done.
func (e *Engine) RequestCompletionVerification(ctx context.Context, actorID MemberID, id BountyID) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		b, err := tx.Bounty(id)
		if err != nil {
			return nil, fmt.Errorf("request completion: %w", err)
		}
		if b.Status != StatusClaimed {
			return nil, fmt.Errorf("request completion: %s is %s: %w", b.ID, b.Status, ErrInvalidState)
		}
		if b.AssignedTo != actorID {
			return nil, fmt.Errorf("request completion: %s is not assigned to %s: %w", b.ID, actorID, ErrUnauthorized)
		}
		if err := advance(b, StatusClaimed, evComplete); err != nil {
			return nil, fmt.Errorf("request completion: %w", err)
		}
		if err := tx.PutBounty(b); err != nil {
			return nil, fmt.Errorf("request completion: %w", err)
		}
		return &Outcome{Bounty: b, Directives: []Directive{RenderCompletionRequest{Bounty: *b}}}, nil
	})
}

// ReviewCompletion certifies or refuses the assignee's work. Either way the
// assignee is released and may claim again.
func (e *Engine) ReviewCompletion(ctx context.Context, verifierID MemberID, id BountyID, approve bool) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		verifier, err := tx.GetOrCreateMember(verifierID)
		if err != nil {
			return nil, fmt.Errorf("review completion: %w", err)
		}
		if !verifier.IsVerifier() {
			return nil, fmt.Errorf("review completion: member %s is not a verifier: %w", verifier.ID, ErrUnauthorized)
		}
		b, err := tx.Bounty(id)
		if err != nil {
			return nil, fmt.Errorf("review completion: %w", err)
		}

		ev := evReject
		if approve {
			ev = evApprove
		}
		if err := advance(b, StatusAwaitingPostVerification, ev); err != nil {
			return nil, fmt.Errorf("review completion: %w", err)
		}

		assigneeID := b.AssignedTo
		assignee, err := tx.GetOrCreateMember(assigneeID)
		if err != nil {
			return nil, fmt.Errorf("review completion: %w", err)
		}
		assignee.release(b.ID)

		about := b.ID
		var directives []Directive
		if approve {
			directives = []Directive{
				RenderApproval{Bounty: *b, By: verifier.ID},
				NotifyDirectMessage{
					Member: assigneeID,
					Text:   fmt.Sprintf("Your work on bounty %s (%q) was verified. You can claim another bounty.", b.ID, b.Title),
					About:  &about,
				},
			}
		} else {
			b.AssignedTo = ""
			directives = []Directive{
				RenderRejection{Bounty: *b, By: verifier.ID},
				NotifyDirectMessage{
					Member: assigneeID,
					Text:   fmt.Sprintf("Your completion of bounty %s (%q) was rejected. You are free to claim another bounty.", b.ID, b.Title),
					About:  &about,
				},
			}
		}

		if err := tx.PutBounty(b); err != nil {
			return nil, fmt.Errorf("review completion: %w", err)
		}
		if err := tx.PutMember(assignee); err != nil {
			return nil, fmt.Errorf("review completion: %w", err)
		}
		return &Outcome{Bounty: b, Member: assignee, Directives: directives}, nil
	})
}

// Promote makes target a verifier. Only verifiers may promote.
func (e *Engine) Promote(ctx context.Context, actorID, targetID MemberID) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		actor, err := tx.GetOrCreateMember(actorID)
		if err != nil {
			return nil, fmt.Errorf("promote: %w", err)
		}
		if !actor.IsVerifier() {
			return nil, fmt.Errorf("promote: member %s is not a verifier: %w", actor.ID, ErrUnauthorized)
		}
		target, err := tx.GetOrCreateMember(targetID)
		if err != nil {
			return nil, fmt.Errorf("promote: %w", err)
		}
		target.Role = RoleVerifier
		if err := tx.PutMember(target); err != nil {
			return nil, fmt.Errorf("promote: %w", err)
		}
		return &Outcome{Member: target, Directives: []Directive{
			NotifyDirectMessage{Member: target.ID, Text: "You have been promoted to verifier."},
		}}, nil
	})
}

// AdjustCredits adds amount to target's credit debt. Negative amounts are
// rebates and may leave the member in surplus.
func (e *Engine) AdjustCredits(ctx context.Context, actorID, targetID MemberID, amount int64) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		actor, err := tx.GetOrCreateMember(actorID)
		if err != nil {
			return nil, fmt.Errorf("adjust credits: %w", err)
		}
		if !actor.IsVerifier() {
			return nil, fmt.Errorf("adjust credits: member %s is not a verifier: %w", actor.ID, ErrUnauthorized)
		}
		target, err := tx.GetOrCreateMember(targetID)
		if err != nil {
			return nil, fmt.Errorf("adjust credits: %w", err)
		}
		target.CreditDebt += amount
		if err := tx.PutMember(target); err != nil {
			return nil, fmt.Errorf("adjust credits: %w", err)
		}
		return &Outcome{Member: target, Directives: []Directive{
			NotifyDirectMessage{
				Member: target.ID,
				Text:   fmt.Sprintf("Your time credits were adjusted by %+d. Outstanding debt: %d.", amount, target.CreditDebt),
			},
		}}, nil
	})
}

// GrantVerifier promotes id without an acting member. It is meant for
// bootstrap configuration and platform role sync, never for member requests.
// The outcome carries a directive only when the role actually changed.
func (e *Engine) GrantVerifier(ctx context.Context, id MemberID) (*Outcome, error) {
	return e.update(ctx, func(tx Tx) (*Outcome, error) {
		m, err := tx.GetOrCreateMember(id)
		if err != nil {
			return nil, fmt.Errorf("grant verifier: %w", err)
		}
		if m.IsVerifier() {
			return &Outcome{Member: m}, nil
		}
		m.Role = RoleVerifier
		if err := tx.PutMember(m); err != nil {
			return nil, fmt.Errorf("grant verifier: %w", err)
		}
		return &Outcome{Member: m, Directives: []Directive{
			NotifyDirectMessage{Member: m.ID, Text: "You have been granted verifier access."},
		}}, nil
	})
}

// Register records a member on first contact and returns the stored record.
func (e *Engine) Register(ctx context.Context, id MemberID) (*Member, error) {
	out, err := e.update(ctx, func(tx Tx) (*Outcome, error) {
		m, err := tx.GetOrCreateMember(id)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		if err := tx.PutMember(m); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		return &Outcome{Member: m}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.Member, nil
}

// SetExternalRef stores the adapter's handle for the bounty's latest rendering.
func (e *Engine) SetExternalRef(ctx context.Context, id BountyID, ref string) error {
	_, err := e.update(ctx, func(tx Tx) (*Outcome, error) {
		b, err := tx.Bounty(id)
		if err != nil {
			return nil, fmt.Errorf("set external ref: %w", err)
		}
		b.ExternalRef = ref
		if err := tx.PutBounty(b); err != nil {
			return nil, fmt.Errorf("set external ref: %w", err)
		}
		return &Outcome{Bounty: b}, nil
	})
	return err
}

// Member returns the member's record, or a default one if never seen.
func (e *Engine) Member(ctx context.Context, id MemberID) (*Member, error) {
	var m *Member
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		m, err = tx.GetOrCreateMember(id)
		return err
	})
	return m, err
}

func (e *Engine) Bounty(ctx context.Context, id BountyID) (*Bounty, error) {
	var b *Bounty
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		b, err = tx.Bounty(id)
		return err
	})
	return b, err
}

func (e *Engine) BountyByExternalRef(ctx context.Context, ref string) (*Bounty, error) {
	var b *Bounty
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		b, err = tx.BountyByExternalRef(ref)
		return err
	})
	return b, err
}

// ListBounties returns every bounty ordered by id, restricted to status when
// it is non-nil.
func (e *Engine) ListBounties(ctx context.Context, status *Status) ([]*Bounty, error) {
	var out []*Bounty
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.Bounties(Filter{Status: status})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list bounties: %w", err)
	}
	return out, nil
}

// GetMemberBounties returns the bounties currently assigned to the member.
func (e *Engine) GetMemberBounties(ctx context.Context, id MemberID) ([]*Bounty, error) {
	var out []*Bounty
	err := e.store.View(ctx, func(tx Tx) error {
		m, err := tx.GetOrCreateMember(id)
		if err != nil {
			return err
		}
		if len(m.AssignedBountyIDs) == 0 {
			return nil
		}
		out, err = tx.Bounties(Filter{IDs: m.AssignedBountyIDs})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("member bounties: %w", err)
	}
	return out, nil
}
