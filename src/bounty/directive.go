package bounty

// Directive tells an adapter what to render after a committed mutation.
// The set of variants is closed; adapters type-switch over it.
type Directive interface {
	directive()
	// Subject is the bounty the directive is about, or nil.
	Subject() *Bounty
}

// RenderOnBoard shows the bounty on the public board, in its current status.
type RenderOnBoard struct{ Bounty Bounty }

// RenderVerificationRequest queues a newly posted bounty for pre-verification.
type RenderVerificationRequest struct{ Bounty Bounty }

// RenderCompletionRequest asks verifiers to confirm the assignee's work.
type RenderCompletionRequest struct{ Bounty Bounty }

// RenderApproval marks the bounty's pending request as approved by By.
type RenderApproval struct {
	Bounty Bounty
	By     MemberID
}

// RenderRejection marks the bounty's pending request as rejected by By.
type RenderRejection struct {
	Bounty Bounty
	By     MemberID
}

// NotifyDirectMessage sends Text privately to Member.
type NotifyDirectMessage struct {
	Member MemberID
	Text   string
	// About optionally names the bounty the message concerns.
	About *BountyID
}

func (RenderOnBoard) directive()             {}
func (RenderVerificationRequest) directive() {}
func (RenderCompletionRequest) directive()   {}
func (RenderApproval) directive()            {}
func (RenderRejection) directive()           {}
func (NotifyDirectMessage) directive()       {}

func (d RenderOnBoard) Subject() *Bounty             { return &d.Bounty }
func (d RenderVerificationRequest) Subject() *Bounty { return &d.Bounty }
func (d RenderCompletionRequest) Subject() *Bounty   { return &d.Bounty }
func (d RenderApproval) Subject() *Bounty            { return &d.Bounty }
func (d RenderRejection) Subject() *Bounty           { return &d.Bounty }
func (d NotifyDirectMessage) Subject() *Bounty       { return nil }

// DirectiveName is a stable identifier for logs and event streams.
func DirectiveName(d Directive) string {
	switch d.(type) {
	case RenderOnBoard:
		return "render_on_board"
	case RenderVerificationRequest:
		return "render_verification_request"
	case RenderCompletionRequest:
		return "render_completion_request"
	case RenderApproval:
		return "render_approval"
	case RenderRejection:
		return "render_rejection"
	case NotifyDirectMessage:
		return "notify_direct_message"
	}
	return "unknown"
}
