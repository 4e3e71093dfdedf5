package logging

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrMisconfigured marks a delivery that cannot succeed until the
// configuration changes, such as a missing channel id.
var ErrMisconfigured = errors.New("misconfigured")

// IsRateLimit reports whether err looks like a rate limit response.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}

// IsPermanent reports whether retrying err cannot succeed: the target is
// gone or the bot lacks access to it.
func IsPermanent(err error) bool {
	if err == nil || IsRateLimit(err) {
		return false
	}
	if errors.Is(err, ErrMisconfigured) {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
	}
	return false
}
