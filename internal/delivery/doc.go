// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package delivery orchestrates one feed-deliver event end to end: fetch and
// parse the feed, select novel articles, then sequentially per medium and
// per article run budget checks, formatting, filtering, dedup claiming,
// payload building, and transport enqueue, producing one delivery state per
// attempt. States are buffered and flushed to the record store in a single
// transaction when the event finishes.
//
// Processing is deliberately sequential within one event so the in-memory
// budget decrements stay consistent; concurrency lives at the event level in
// the broker consumer.
package delivery
