// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package format converts article HTML into provider-safe markup, renders
// {{placeholder}} templates with optional fallback chains, derives custom
// regex-based placeholders, and splits long text into size-bounded parts.
package format
