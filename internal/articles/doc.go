// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package articles parses raw feed documents and normalizes entries into
// flattened Articles with stable content-derived identity hashes.
package articles
