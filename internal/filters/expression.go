// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package filters

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ExpressionType discriminates expression tree nodes.
type ExpressionType string

const (
	ExpressionLogical    ExpressionType = "LOGICAL"
	ExpressionRelational ExpressionType = "RELATIONAL"
)

// LogicalOp is the operator of a logical node.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
	OpNot LogicalOp = "NOT"
)

// RelationalOp is the operator of a relational node.
type RelationalOp string

const (
	OpEq       RelationalOp = "EQ"
	OpContains RelationalOp = "CONTAINS"
	OpMatches  RelationalOp = "MATCHES"
)

// OperandKind discriminates relational operands.
type OperandKind string

const (
	// OperandArticle references a flattened article field by path.
	OperandArticle OperandKind = "ARTICLE"

	// OperandString is a literal string right-hand side.
	OperandString OperandKind = "STRING"

	// OperandRegExp is a regex pattern right-hand side. Only valid with
	// OpMatches.
	OperandRegExp OperandKind = "REGEXP"
)

// Expression is one node of a filter expression tree.
type Expression interface {
	isExpression()
}

// LogicalExpression combines child expressions with AND, OR, or NOT.
type LogicalExpression struct {
	Op       LogicalOp
	Children []Expression
}

func (*LogicalExpression) isExpression() {}

// RelationalExpression compares one article field against a literal or a
// regex pattern.
type RelationalExpression struct {
	Op    RelationalOp
	Left  Operand
	Right Operand
}

func (*RelationalExpression) isExpression() {}

// Operand is one side of a relational expression.
type Operand struct {
	Kind  OperandKind `json:"type"`
	Value string      `json:"value"`
}

// jsonExpression is the wire shape of an expression node before
// discrimination.
type jsonExpression struct {
	Type     ExpressionType    `json:"type"`
	Op       string            `json:"op"`
	Children []json.RawMessage `json:"children"`
	Left     *Operand          `json:"left"`
	Right    *Operand          `json:"right"`
}

// filtersEnvelope is the shape filters are stored under on a medium.
type filtersEnvelope struct {
	Expression json.RawMessage `json:"expression"`
}

// ParseMediumFilters decodes the "filters" blob of a medium, which wraps the
// expression under an "expression" key. A missing or null expression yields
// (nil, nil).
func ParseMediumFilters(raw []byte) (Expression, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var envelope filtersEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &InvalidExpressionError{Reason: fmt.Sprintf("malformed filters envelope: %v", err)}
	}
	if len(envelope.Expression) == 0 || string(envelope.Expression) == "null" {
		return nil, nil
	}

	return Parse(envelope.Expression)
}

// Parse decodes a JSON expression tree into its tagged-union form.
func Parse(raw []byte) (Expression, error) {
	var node jsonExpression
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, &InvalidExpressionError{Reason: fmt.Sprintf("malformed expression node: %v", err)}
	}

	switch node.Type {
	case ExpressionLogical:
		return parseLogical(&node)
	case ExpressionRelational:
		return parseRelational(&node)
	default:
		return nil, &InvalidExpressionError{Reason: fmt.Sprintf("unknown expression type %q", node.Type)}
	}
}

func parseLogical(node *jsonExpression) (Expression, error) {
	op := LogicalOp(node.Op)
	switch op {
	case OpAnd, OpOr:
	case OpNot:
		if len(node.Children) != 1 {
			return nil, &InvalidExpressionError{
				Reason: fmt.Sprintf("NOT requires exactly one child, got %d", len(node.Children)),
			}
		}
	default:
		return nil, &InvalidExpressionError{Reason: fmt.Sprintf("unknown logical operator %q", node.Op)}
	}

	children := make([]Expression, 0, len(node.Children))
	for _, rawChild := range node.Children {
		child, err := Parse(rawChild)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return &LogicalExpression{Op: op, Children: children}, nil
}

func parseRelational(node *jsonExpression) (Expression, error) {
	if node.Left == nil || node.Right == nil {
		return nil, &InvalidExpressionError{Reason: "relational node requires left and right operands"}
	}
	if node.Left.Kind != OperandArticle {
		return nil, &InvalidExpressionError{
			Reason: fmt.Sprintf("unknown left operand kind %q", node.Left.Kind),
		}
	}

	op := RelationalOp(node.Op)
	switch node.Right.Kind {
	case OperandString:
		if op != OpEq && op != OpContains {
			return nil, &InvalidExpressionError{
				Reason: fmt.Sprintf("operator %q is not supported for string operands", node.Op),
			}
		}
	case OperandRegExp:
		if op != OpMatches {
			return nil, &InvalidExpressionError{
				Reason: fmt.Sprintf("operator %q is not supported for regex operands", node.Op),
			}
		}
	default:
		return nil, &InvalidExpressionError{
			Reason: fmt.Sprintf("unknown right operand kind %q", node.Right.Kind),
		}
	}

	return &RelationalExpression{Op: op, Left: *node.Left, Right: *node.Right}, nil
}
