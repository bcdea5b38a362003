// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package filters

import "fmt"

// InvalidExpressionError reports a structurally invalid expression tree:
// an unknown node type, operator, or operand kind, or a malformed node.
type InvalidExpressionError struct {
	Reason string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid filter expression: %s", e.Reason)
}

// RegexEvaluationError reports a regex that failed to compile or exceeded
// its evaluation deadline. The orchestrator converts it into a per-article
// rejection without aborting sibling work.
type RegexEvaluationError struct {
	Pattern  string
	TimedOut bool
	Cause    error
}

func (e *RegexEvaluationError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("regex evaluation timed out: %q", e.Pattern)
	}
	return fmt.Sprintf("regex evaluation failed for %q: %v", e.Pattern, e.Cause)
}

func (e *RegexEvaluationError) Unwrap() error { return e.Cause }
