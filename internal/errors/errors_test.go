package errors

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerErrorMessage(t *testing.T) {
	err := NewBindError("127.0.0.1:3000", syscall.EADDRINUSE)

	assert.Equal(t, "listen 127.0.0.1:3000: address already in use", err.Error())
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
}

func TestServerErrorKindMatching(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"bind matches bind", NewBindError(":80", syscall.EACCES), ErrBind, true},
		{"bind does not match transport", NewBindError(":80", syscall.EACCES), ErrTransport, false},
		{"wrapped transport", fmt.Errorf("serving: %w", NewTransportError("write", "10.0.0.1:5555", syscall.EPIPE)), ErrTransport, true},
		{"config", NewConfigError("port %d out of range", 70000), ErrConfig, true},
		{"plain error", errors.New("boom"), ErrBind, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantMatch, errors.Is(tc.err, tc.target))
		})
	}
}

func TestIsBindError(t *testing.T) {
	assert.True(t, IsBindError(fmt.Errorf("start: %w", NewBindError(":3000", syscall.EADDRINUSE))))
	assert.False(t, IsBindError(NewConfigError("bad")))
	assert.False(t, IsBindError(nil))
}

func TestServerStartErrorSuggestions(t *testing.T) {
	inUse := ServerStartError(NewBindError(":3000", syscall.EADDRINUSE), 3000)
	require.Len(t, inUse, 2)
	assert.Equal(t, "Port already in use", inUse[0].Title)
	assert.Equal(t, "lsof -i :3000", inUse[0].Command)

	denied := ServerStartError(NewBindError(":80", syscall.EACCES), 80)
	require.Len(t, denied, 2)
	assert.Equal(t, "Use unprivileged port", denied[1].Title)

	assert.Empty(t, ServerStartError(nil, 3000))
}

func TestEnhancedError(t *testing.T) {
	cause := NewBindError(":3000", syscall.EADDRINUSE)
	err := NewEnhancedError("Failed to start server on port 3000", cause, ServerStartError(cause, 3000))

	assert.ErrorIs(t, err, ErrBind)
	msg := err.Error()
	assert.Contains(t, msg, "Failed to start server on port 3000")
	assert.Contains(t, msg, "Suggestions:")
	assert.Contains(t, msg, "Run: lsof -i :3000")
}

func TestFormatSuggestionsWithoutSuggestions(t *testing.T) {
	assert.Equal(t, "just a title", FormatSuggestions("just a title", nil))
}
