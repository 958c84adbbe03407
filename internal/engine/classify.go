package engine

import (
	"strings"
)

// Classification buckets a transfer failure for the presentation layer
type Classification string

const (
	// ClassFatalAuth marks failures that need user credential action before
	// any retry can succeed
	ClassFatalAuth Classification = "fatal_auth"
	// ClassTransient marks network-shaped failures worth a plain retry
	ClassTransient Classification = "transient"
	// ClassUnknown is everything else
	ClassUnknown Classification = "unknown"
)

// String returns the string representation of Classification
func (c Classification) String() string {
	return string(c)
}

var authPatterns = []string{
	"sign in to confirm",
	"sign in to view",
	"login required",
	"cookies",
	"cookie database",
	"authentication",
	"this video is private",
	"members-only",
	"http error 403",
	"403: forbidden",
}

var transientPatterns = []string{
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"temporarily unavailable",
	"unable to download webpage",
	"network is unreachable",
	"http error 429",
	"http error 5",
	"remote end closed",
	"unexpected eof",
}

// Classify inspects a failure message for known fatal patterns. Auth-class
// failures are surfaced distinctly so the user gets a guided fix-and-retry
// instead of a generic error.
func Classify(message string) Classification {
	m := strings.ToLower(message)

	for _, p := range authPatterns {
		if strings.Contains(m, p) {
			return ClassFatalAuth
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(m, p) {
			return ClassTransient
		}
	}
	return ClassUnknown
}
