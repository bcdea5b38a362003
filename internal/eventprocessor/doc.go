// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package eventprocessor wires the delivery pipeline to the NATS JetStream
// broker: an optional embedded server, a resilient publisher, durable
// queue-group subscribers, and the handlers that consume feed events and
// reconcile asynchronous delivery results.
package eventprocessor
