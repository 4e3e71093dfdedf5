package board

import (
	"context"
	"fmt"

	"github.com/stake-plus/bountyboard/src/bounty"
	shareddiscord "github.com/stake-plus/bountyboard/src/discord"
)

// ReactionResult reports what a reaction did. Refusal is set when the
// reaction was a valid request that the engine turned down.
type ReactionResult struct {
	Handled    bool
	Refusal    string
	Directives []bounty.Directive
}

// HandleReaction applies a reaction on the message identified by ref.
// Reactions on messages that do not represent a bounty are ignored.
func (h *Handler) HandleReaction(ctx context.Context, user bounty.MemberID, ref string, action shareddiscord.ReactionAction) (ReactionResult, error) {
	b, err := h.Engine.BountyByExternalRef(ctx, ref)
	if err != nil {
		if bounty.Kind(err) == bounty.KindNotFound {
			return ReactionResult{}, nil
		}
		return ReactionResult{}, fmt.Errorf("board: resolve %s: %w", ref, err)
	}

	var (
		out  *bounty.Outcome
		verb string
	)
	switch action {
	case shareddiscord.ReactClaim:
		verb = "claim"
		out, err = h.Engine.ClaimBounty(ctx, user, b.ID)
	case shareddiscord.ReactComplete:
		verb = "request completion of"
		out, err = h.Engine.RequestCompletionVerification(ctx, user, b.ID)
	case shareddiscord.ReactApprove, shareddiscord.ReactReject:
		verb = "review"
		out, err = h.review(ctx, user, b.ID, action == shareddiscord.ReactApprove)
	default:
		return ReactionResult{}, nil
	}

	if err != nil {
		if bounty.Kind(err) == bounty.KindInternal {
			return ReactionResult{}, fmt.Errorf("board: %s %s: %w", verb, b.ID, err)
		}
		return ReactionResult{
			Handled: true,
			Refusal: fmt.Sprintf("Cannot %s bounty %s: %s", verb, b.ID, h.refusal(ctx, user, err)),
		}, nil
	}
	return ReactionResult{Handled: true, Directives: out.Directives}, nil
}
