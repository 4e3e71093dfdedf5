package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/bountyboard/src/bounty"
)

// memberID resolves the :id parameter; "me" is the caller.
func memberID(c *gin.Context) bounty.MemberID {
	if id := c.Param("id"); id != "me" {
		return bounty.MemberID(id)
	}
	return caller(c)
}

func (h Bounties) GetMember(c *gin.Context) {
	m, err := h.engine.Member(c.Request.Context(), memberID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewMember(m))
}

func (h Bounties) MemberBounties(c *gin.Context) {
	list, err := h.engine.GetMemberBounties(c.Request.Context(), memberID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBounties(list))
}

func (h Bounties) Promote(c *gin.Context) {
	out, err := h.engine.Promote(c.Request.Context(), caller(c), memberID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	h.settle(c, http.StatusOK, out, viewMember(out.Member))
}

func (h Bounties) AdjustCredits(c *gin.Context) {
	var req struct {
		Amount *int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	out, err := h.engine.AdjustCredits(c.Request.Context(), caller(c), memberID(c), *req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	h.settle(c, http.StatusOK, out, viewMember(out.Member))
}
