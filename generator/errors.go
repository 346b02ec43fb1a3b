package generator

import (
	"errors"
	"strings"
)

var (
	// ErrRateLimited wraps provider errors that mean "this credential is exhausted,
	// try another one".
	ErrRateLimited = errors.New("rate limited")
	// ErrNoCredential means no credential was configured or all are cooling down.
	ErrNoCredential = errors.New("no credential available")
	// ErrEmptyResponse means the model answered with nothing usable.
	ErrEmptyResponse = errors.New("empty response")
)

var rateLimitMarkers = []string{
	"resource exhausted",
	"resource_exhausted",
	"quota exceeded",
	"rate limit exceeded",
	"too many requests",
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "429") {
		return true
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
