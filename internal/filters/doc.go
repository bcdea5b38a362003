// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package filters implements the boolean filter-expression evaluator that
// gates article delivery per medium, per mention target, and per forum tag.
//
// Expressions arrive as dynamically-tagged JSON trees and are decoded into a
// tagged union discriminated on the "type" field. Evaluation is total and
// pure except for regex matching, which runs under a hard wall-clock
// deadline so a pathological pattern can never stall the delivery loop.
//
// Unknown expression types, operators, or operand kinds always raise a typed
// *InvalidExpressionError; they are never silently treated as true or false.
package filters
