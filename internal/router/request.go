package router

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IncomingRequest is the per-request view the route table dispatches on.
type IncomingRequest struct {
	ID         string
	Method     string
	Path       string // decoded, without query string
	ReceivedAt time.Time
}

// NewIncomingRequest stamps a request with a fresh ID.
func NewIncomingRequest(method, path string, receivedAt time.Time) IncomingRequest {
	return IncomingRequest{
		ID:         uuid.NewString(),
		Method:     method,
		Path:       path,
		ReceivedAt: receivedAt,
	}
}

// ParseTarget extracts the decoded path from a request target such as
// "/api/data?pretty=1" or "http://localhost:3000/about". The query string is
// discarded. Trailing slashes and case are preserved.
func ParseTarget(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("empty request target")
	}
	if target == "*" {
		return target, nil
	}

	u, err := url.ParseRequestURI(target)
	if err != nil {
		return "", fmt.Errorf("parsing request target %q: %w", target, err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("request target %q has no absolute path", target)
	}

	return path, nil
}
