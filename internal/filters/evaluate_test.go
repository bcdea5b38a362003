// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package filters

import (
	"context"
	"errors"
	"testing"
)

func refs(article map[string]string) *References {
	return &References{Article: article}
}

func TestEvaluateRegexMatches(t *testing.T) {
	t.Parallel()

	expr := &RelationalExpression{
		Op:    OpMatches,
		Left:  Operand{Kind: OperandArticle, Value: "title"},
		Right: Operand{Kind: OperandRegExp, Value: "mother"},
	}

	e := NewEvaluator()

	got, err := e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "MOTHER"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected case-insensitive match against MOTHER")
	}

	got, err = e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "father"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("expected no match against father")
	}
}

func TestEvaluateAndShortCircuit(t *testing.T) {
	t.Parallel()

	expr := &LogicalExpression{
		Op: OpAnd,
		Children: []Expression{
			&RelationalExpression{
				Op:    OpEq,
				Left:  Operand{Kind: OperandArticle, Value: "title"},
				Right: Operand{Kind: OperandString, Value: "a"},
			},
			&RelationalExpression{
				Op:    OpEq,
				Left:  Operand{Kind: OperandArticle, Value: "description"},
				Right: Operand{Kind: OperandString, Value: "b"},
			},
		},
	}

	e := NewEvaluator()

	got, err := e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "a", "description": "b"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected AND of two matching children to be true")
	}

	got, err = e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "a", "description": "b-different"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("expected AND with one failing child to be false")
	}
}

func TestEvaluateAndVacuousTruth(t *testing.T) {
	t.Parallel()

	e := NewEvaluator()
	got, err := e.Evaluate(context.Background(), &LogicalExpression{Op: OpAnd}, refs(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected empty AND to be vacuously true")
	}
}

func TestEvaluateOrWithoutReferences(t *testing.T) {
	t.Parallel()

	expr := &LogicalExpression{
		Op: OpOr,
		Children: []Expression{
			&RelationalExpression{
				Op:    OpEq,
				Left:  Operand{Kind: OperandArticle, Value: "title"},
				Right: Operand{Kind: OperandString, Value: "a"},
			},
		},
	}

	e := NewEvaluator()
	got, err := e.Evaluate(context.Background(), expr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("expected OR with no reference object to be false")
	}
}

func TestEvaluateNot(t *testing.T) {
	t.Parallel()

	expr := &LogicalExpression{
		Op: OpNot,
		Children: []Expression{
			&RelationalExpression{
				Op:    OpContains,
				Left:  Operand{Kind: OperandArticle, Value: "title"},
				Right: Operand{Kind: OperandString, Value: "spam"},
			},
		},
	}

	e := NewEvaluator()
	got, err := e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "weekly digest"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected NOT of a non-matching child to be true")
	}
}

func TestEvaluateMissingFieldIsFalse(t *testing.T) {
	t.Parallel()

	expr := &RelationalExpression{
		Op:    OpEq,
		Left:  Operand{Kind: OperandArticle, Value: "nonexistent"},
		Right: Operand{Kind: OperandString, Value: "x"},
	}

	e := NewEvaluator()
	got, err := e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "x"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("expected relation on a missing field to be false")
	}
}

func TestEvaluateUnknownOperatorFails(t *testing.T) {
	t.Parallel()

	expr := &RelationalExpression{
		Op:    RelationalOp("GT"),
		Left:  Operand{Kind: OperandArticle, Value: "title"},
		Right: Operand{Kind: OperandString, Value: "x"},
	}

	e := NewEvaluator()
	_, err := e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "x"}))

	var invalid *InvalidExpressionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidExpressionError, got %v", err)
	}
}

func TestEvaluateRegexCompileError(t *testing.T) {
	t.Parallel()

	expr := &RelationalExpression{
		Op:    OpMatches,
		Left:  Operand{Kind: OperandArticle, Value: "title"},
		Right: Operand{Kind: OperandRegExp, Value: "(unclosed"},
	}

	e := NewEvaluator()
	_, err := e.Evaluate(context.Background(), expr, refs(map[string]string{"title": "x"}))

	var regexErr *RegexEvaluationError
	if !errors.As(err, &regexErr) {
		t.Fatalf("expected RegexEvaluationError, got %v", err)
	}
	if regexErr.TimedOut {
		t.Error("compile failure should not be reported as a timeout")
	}
}

func TestEvaluateWithTrace(t *testing.T) {
	t.Parallel()

	expr := &LogicalExpression{
		Op: OpAnd,
		Children: []Expression{
			&RelationalExpression{
				Op:    OpEq,
				Left:  Operand{Kind: OperandArticle, Value: "title"},
				Right: Operand{Kind: OperandString, Value: "a"},
			},
		},
	}

	e := NewEvaluator()
	got, trace, err := e.EvaluateWithTrace(context.Background(), expr, refs(map[string]string{"title": "b"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("expected false result")
	}
	if trace == nil || len(trace.Children) != 1 {
		t.Fatalf("expected trace with one child, got %+v", trace)
	}
	if trace.Children[0].Field != "title" {
		t.Errorf("expected child trace field title, got %q", trace.Children[0].Field)
	}
}
