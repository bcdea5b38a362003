// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package ratelimit enforces delivery caps over trailing time windows. Sent
// deliveries are counted from the persisted record store so limits survive
// restarts; deliveries enqueued by this process but not yet reconciled are
// tracked in memory so a burst of events cannot overshoot a cap while
// results are in flight.
package ratelimit
