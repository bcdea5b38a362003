// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package filters

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// References holds the objects an expression's field paths resolve against.
// Today the only reference is the formatted article's flattened map.
type References struct {
	Article map[string]string
}

// resolve looks up a field path against the reference objects. The second
// return is false when the reference object is absent or the path does not
// resolve to a primitive value.
func (r *References) resolve(path string) (string, bool) {
	if r == nil || r.Article == nil {
		return "", false
	}
	v, ok := r.Article[path]
	return v, ok
}

// TraceNode records the outcome of evaluating one expression node, for the
// explain trace optionally attached to filtered-out delivery states.
type TraceNode struct {
	Type     ExpressionType `json:"type"`
	Op       string         `json:"op"`
	Field    string         `json:"field,omitempty"`
	Result   bool           `json:"result"`
	Error    string         `json:"error,omitempty"`
	Children []*TraceNode   `json:"children,omitempty"`
}

// Evaluator evaluates filter expression trees against article references.
// The zero value uses DefaultRegexTimeout.
type Evaluator struct {
	// RegexTimeout bounds each MATCHES evaluation.
	RegexTimeout time.Duration
}

// NewEvaluator returns an evaluator with the default regex deadline.
func NewEvaluator() *Evaluator {
	return &Evaluator{RegexTimeout: DefaultRegexTimeout}
}

// Evaluate returns the boolean result of expr against refs. A nil expression
// passes everything.
func (e *Evaluator) Evaluate(ctx context.Context, expr Expression, refs *References) (bool, error) {
	if expr == nil {
		return true, nil
	}
	result, _, err := e.eval(ctx, expr, refs, false)
	return result, err
}

// EvaluateWithTrace evaluates expr and additionally returns a per-node
// explain trace.
func (e *Evaluator) EvaluateWithTrace(ctx context.Context, expr Expression, refs *References) (bool, *TraceNode, error) {
	if expr == nil {
		return true, nil, nil
	}
	return e.eval(ctx, expr, refs, true)
}

func (e *Evaluator) eval(ctx context.Context, expr Expression, refs *References, traced bool) (bool, *TraceNode, error) {
	switch n := expr.(type) {
	case *LogicalExpression:
		return e.evalLogical(ctx, n, refs, traced)
	case *RelationalExpression:
		return e.evalRelational(ctx, n, refs, traced)
	default:
		return false, nil, &InvalidExpressionError{Reason: fmt.Sprintf("unknown expression node %T", expr)}
	}
}

func (e *Evaluator) evalLogical(ctx context.Context, n *LogicalExpression, refs *References, traced bool) (bool, *TraceNode, error) {
	var trace *TraceNode
	if traced {
		trace = &TraceNode{Type: ExpressionLogical, Op: string(n.Op)}
	}

	record := func(child *TraceNode) {
		if trace != nil && child != nil {
			trace.Children = append(trace.Children, child)
		}
	}
	finish := func(result bool) (bool, *TraceNode, error) {
		if trace != nil {
			trace.Result = result
		}
		return result, trace, nil
	}

	switch n.Op {
	case OpAnd:
		// Vacuously true on empty children.
		for _, child := range n.Children {
			result, childTrace, err := e.eval(ctx, child, refs, traced)
			record(childTrace)
			if err != nil {
				return false, trace, err
			}
			if !result {
				return finish(false)
			}
		}
		return finish(true)

	case OpOr:
		if refs == nil || refs.Article == nil {
			return finish(false)
		}
		for _, child := range n.Children {
			result, childTrace, err := e.eval(ctx, child, refs, traced)
			record(childTrace)
			if err != nil {
				return false, trace, err
			}
			if result {
				return finish(true)
			}
		}
		return finish(false)

	case OpNot:
		if len(n.Children) != 1 {
			return false, trace, &InvalidExpressionError{
				Reason: fmt.Sprintf("NOT requires exactly one child, got %d", len(n.Children)),
			}
		}
		result, childTrace, err := e.eval(ctx, n.Children[0], refs, traced)
		record(childTrace)
		if err != nil {
			return false, trace, err
		}
		return finish(!result)

	default:
		return false, trace, &InvalidExpressionError{Reason: fmt.Sprintf("unknown logical operator %q", n.Op)}
	}
}

func (e *Evaluator) evalRelational(ctx context.Context, n *RelationalExpression, refs *References, traced bool) (bool, *TraceNode, error) {
	var trace *TraceNode
	if traced {
		trace = &TraceNode{Type: ExpressionRelational, Op: string(n.Op), Field: n.Left.Value}
	}
	finish := func(result bool) (bool, *TraceNode, error) {
		if trace != nil {
			trace.Result = result
		}
		return result, trace, nil
	}

	left, ok := refs.resolve(n.Left.Value)
	if !ok {
		// Absent field: the relation is false, never an error.
		return finish(false)
	}

	switch n.Right.Kind {
	case OperandString:
		switch n.Op {
		case OpEq:
			return finish(left == n.Right.Value)
		case OpContains:
			return finish(strings.Contains(left, n.Right.Value))
		default:
			return false, trace, &InvalidExpressionError{
				Reason: fmt.Sprintf("operator %q is not supported for string operands", n.Op),
			}
		}

	case OperandRegExp:
		if n.Op != OpMatches {
			return false, trace, &InvalidExpressionError{
				Reason: fmt.Sprintf("operator %q is not supported for regex operands", n.Op),
			}
		}
		matched, err := MatchBounded(ctx, n.Right.Value, left, e.RegexTimeout)
		if err != nil {
			if trace != nil {
				trace.Error = err.Error()
			}
			return false, trace, err
		}
		return finish(matched)

	default:
		return false, trace, &InvalidExpressionError{
			Reason: fmt.Sprintf("unknown right operand kind %q", n.Right.Kind),
		}
	}
}
