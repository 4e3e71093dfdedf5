package api

import (
	"context"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stake-plus/bountyboard/src/bounty"
)

// Dispatcher queues directives for ordered delivery once the engine has
// committed them.
type Dispatcher interface {
	Enqueue(directives ...bounty.Directive)
}

// Bounties serves the bounty and member routes.
type Bounties struct {
	engine     *bounty.Engine
	dispatcher Dispatcher
	sanitizer  *bluemonday.Policy
}

func NewBounties(engine *bounty.Engine, dispatcher Dispatcher) Bounties {
	return Bounties{engine: engine, dispatcher: dispatcher, sanitizer: bluemonday.StrictPolicy()}
}

// clean strips markup. Renderers show plain text, so entities the policy
// escaped are restored afterwards.
func (h Bounties) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(s)))
}

// settle queues the outcome's directives, then answers with the outcome.
func (h Bounties) settle(c *gin.Context, code int, out *bounty.Outcome, body any) {
	if len(out.Directives) > 0 && h.dispatcher != nil {
		h.dispatcher.Enqueue(out.Directives...)
	}
	c.JSON(code, body)
}

func (h Bounties) bountyID(c *gin.Context) (bounty.BountyID, bool) {
	id, err := bounty.ParseBountyID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad bounty id"})
		return 0, false
	}
	return id, true
}

func (h Bounties) List(c *gin.Context) {
	var filter *bounty.Status
	if raw := c.Query("status"); raw != "" {
		s, err := bounty.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
		filter = &s
	}
	list, err := h.engine.ListBounties(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBounties(list))
}

func (h Bounties) Get(c *gin.Context) {
	id, ok := h.bountyID(c)
	if !ok {
		return
	}
	b, err := h.engine.Bounty(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBounty(b))
}

func (h Bounties) Create(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,max=200"`
		Description string `json:"description" binding:"max=4000"`
		Type        string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	typ, err := bounty.ParseType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	title := h.clean(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "title is empty"})
		return
	}

	out, err := h.engine.PostBounty(c.Request.Context(), caller(c), title, h.clean(req.Description), typ)
	if err != nil {
		writeError(c, err)
		return
	}
	h.settle(c, http.StatusCreated, out, viewBounty(out.Bounty))
}

func (h Bounties) Claim(c *gin.Context) {
	id, ok := h.bountyID(c)
	if !ok {
		return
	}
	out, err := h.engine.ClaimBounty(c.Request.Context(), caller(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.settle(c, http.StatusOK, out, viewBounty(out.Bounty))
}

func (h Bounties) Complete(c *gin.Context) {
	id, ok := h.bountyID(c)
	if !ok {
		return
	}
	out, err := h.engine.RequestCompletionVerification(c.Request.Context(), caller(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.settle(c, http.StatusOK, out, viewBounty(out.Bounty))
}

type verdict struct {
	Approve *bool `json:"approve" binding:"required"`
}

func (h Bounties) PreVerification(c *gin.Context) {
	h.review(c, h.engine.ReviewPreVerification)
}

func (h Bounties) Verification(c *gin.Context) {
	h.review(c, h.engine.ReviewCompletion)
}

func (h Bounties) review(c *gin.Context, fn func(context.Context, bounty.MemberID, bounty.BountyID, bool) (*bounty.Outcome, error)) {
	id, ok := h.bountyID(c)
	if !ok {
		return
	}
	var req verdict
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	out, err := fn(c.Request.Context(), caller(c), id, *req.Approve)
	if err != nil {
		writeError(c, err)
		return
	}
	h.settle(c, http.StatusOK, out, viewBounty(out.Bounty))
}
