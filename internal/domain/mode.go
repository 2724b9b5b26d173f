package domain

import "fmt"

// FetchMode selects which photo a fetch run publishes.
// Values include FetchModeLatest and FetchModeRandom.
type FetchMode string

const (
	FetchModeLatest FetchMode = "latest"
	FetchModeRandom FetchMode = "random"
)

// ModeFor returns FetchModeRandom when random is set, FetchModeLatest otherwise.
func ModeFor(random bool) FetchMode {
	if random {
		return FetchModeRandom
	}
	return FetchModeLatest
}

// ParseFetchMode parses a mode name.
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(s) {
	case FetchModeLatest, FetchModeRandom:
		return FetchMode(s), nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q", s)
	}
}

// Outcome is the result of one fetch run.
// Values include OutcomeSuccess, OutcomeRetryable, and OutcomeFailed.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetryable Outcome = "retryable"
	OutcomeFailed    Outcome = "failed"
)
