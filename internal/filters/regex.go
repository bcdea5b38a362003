// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package filters

import (
	"context"
	"regexp"
	"time"
)

// DefaultRegexTimeout bounds one regex evaluation. Go's regexp engine is
// linear in input size, but very large inputs against complex patterns can
// still take long enough to stall a delivery loop.
const DefaultRegexTimeout = 5 * time.Second

// MatchBounded compiles pattern case-insensitively and reports whether it
// matches input, abandoning the evaluation after timeout. A compile failure
// or deadline excess returns a *RegexEvaluationError.
//
// The match runs on its own goroutine; on timeout the goroutine is abandoned
// and finishes in the background without blocking the caller.
func MatchBounded(ctx context.Context, pattern, input string, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false, &RegexEvaluationError{Pattern: pattern, Cause: err}
	}

	done := make(chan bool, 1)
	go func() {
		done <- re.MatchString(input)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case matched := <-done:
		return matched, nil
	case <-timer.C:
		return false, &RegexEvaluationError{Pattern: pattern, TimedOut: true}
	case <-ctx.Done():
		return false, &RegexEvaluationError{Pattern: pattern, TimedOut: true, Cause: ctx.Err()}
	}
}

// ReplaceAllBounded applies one regex search/replace under the same deadline
// discipline as MatchBounded. Flags other than the implied case-insensitive
// flag are taken from flags ("i" and "g" are recognized; "g" is the default
// behavior of ReplaceAllString and accepted for compatibility).
func ReplaceAllBounded(ctx context.Context, pattern, flags, replacement, input string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}

	prefix := ""
	for _, f := range flags {
		if f == 'i' {
			prefix = "(?i)"
		}
	}

	re, err := regexp.Compile(prefix + pattern)
	if err != nil {
		return "", &RegexEvaluationError{Pattern: pattern, Cause: err}
	}

	done := make(chan string, 1)
	go func() {
		done <- re.ReplaceAllString(input, replacement)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out, nil
	case <-timer.C:
		return "", &RegexEvaluationError{Pattern: pattern, TimedOut: true}
	case <-ctx.Done():
		return "", &RegexEvaluationError{Pattern: pattern, TimedOut: true, Cause: ctx.Err()}
	}
}
