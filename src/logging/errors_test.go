package logging

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func restError(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
}

func TestIsRateLimit(t *testing.T) {
	assert.False(t, IsRateLimit(nil))
	assert.True(t, IsRateLimit(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRateLimit(fmt.Errorf("send: %w", restError(http.StatusTooManyRequests))))
	assert.False(t, IsRateLimit(restError(http.StatusNotFound)))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(fmt.Errorf("edit: %w", restError(http.StatusNotFound))))
	assert.True(t, IsPermanent(restError(http.StatusForbidden)))
	assert.False(t, IsPermanent(restError(http.StatusBadGateway)))
	assert.False(t, IsPermanent(restError(http.StatusTooManyRequests)))
	assert.False(t, IsPermanent(errors.New("connection reset")))
	assert.True(t, IsPermanent(fmt.Errorf("board channel: %w", ErrMisconfigured)))
}
