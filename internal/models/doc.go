// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package models defines the core domain types shared across the delivery
// pipeline: articles, delivery mediums, delivery states, and the broker
// event envelopes consumed and produced at the service edge.
//
// Types here are plain data carriers. Behavior lives in the packages that
// own each pipeline stage (articles, filters, format, payload, delivery).
package models
