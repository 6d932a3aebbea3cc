package server

import (
	"net/http"
	"strings"
)

// OriginChecker decides which browser origins may open sockets and call the
// REST surface. An empty allow list accepts every origin.
type OriginChecker struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	checker := &OriginChecker{
		allowed: make(map[string]struct{}, len(allowedOrigins)),
	}

	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}

		if origin == "*" {
			checker.allowAll = true
			continue
		}

		checker.allowed[strings.ToLower(origin)] = struct{}{}
	}

	if len(checker.allowed) == 0 {
		checker.allowAll = true
	}

	return checker
}

func (c *OriginChecker) IsAllowed(origin string) bool {
	if c.allowAll {
		return true
	}

	_, ok := c.allowed[strings.ToLower(strings.TrimRight(origin, "/"))]

	return ok
}

// Check has the signature websocket.Upgrader expects. Requests without an
// Origin header come from non-browser clients and are accepted.
func (c *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return c.IsAllowed(origin)
}
