package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/bountyboard/src/bounty"
)

// StatusFor maps an engine refusal to an HTTP status.
func StatusFor(err error) int {
	switch bounty.Kind(err) {
	case bounty.KindNone:
		return http.StatusOK
	case bounty.KindNotFound:
		return http.StatusNotFound
	case bounty.KindUnauthorized:
		return http.StatusForbidden
	case bounty.KindInvalidState, bounty.KindAlreadyAssigned:
		return http.StatusConflict
	case bounty.KindDebtBlocked:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal error"
	}
	c.JSON(code, gin.H{"err": msg, "kind": bounty.Kind(err).String()})
}
