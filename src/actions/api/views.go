package api

import (
	"time"

	"github.com/stake-plus/bountyboard/src/bounty"
)

type bountyView struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creatorId"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	VerifierID  string    `json:"verifierId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type memberView struct {
	ID                string   `json:"id"`
	Role              string   `json:"role"`
	CreditDebt        int64    `json:"creditDebt"`
	AssignedBountyIDs []string `json:"assignedBountyIds"`
}

func viewBounty(b *bounty.Bounty) bountyView {
	return bountyView{
		ID:          b.ID.String(),
		CreatorID:   string(b.CreatorID),
		Type:        b.Type.String(),
		Status:      b.Status.String(),
		Title:       b.Title,
		Description: b.Description,
		AssignedTo:  string(b.AssignedTo),
		VerifierID:  string(b.VerifierID),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func viewBounties(list []*bounty.Bounty) []bountyView {
	out := make([]bountyView, 0, len(list))
	for _, b := range list {
		out = append(out, viewBounty(b))
	}
	return out
}

func viewMember(m *bounty.Member) memberView {
	ids := make([]string, 0, len(m.AssignedBountyIDs))
	for _, id := range m.AssignedBountyIDs {
		ids = append(ids, id.String())
	}
	return memberView{
		ID:                string(m.ID),
		Role:              m.Role.String(),
		CreditDebt:        m.CreditDebt,
		AssignedBountyIDs: ids,
	}
}
