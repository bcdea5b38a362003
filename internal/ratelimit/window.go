// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package ratelimit

import (
	"sync"
	"time"
)

// slidingWindowCounter counts events within a trailing window by dividing
// time into buckets and summing them. Increment is O(1), Count is O(k)
// where k is the bucket count.
type slidingWindowCounter struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	numBuckets int
	current    int
	lastUpdate time.Time
}

const defaultNumBuckets = 10

func newSlidingWindowCounter(windowSize time.Duration, numBuckets int) *slidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = defaultNumBuckets
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}

	return &slidingWindowCounter{
		buckets:    make([]int64, numBuckets),
		bucketSize: windowSize / time.Duration(numBuckets),
		numBuckets: numBuckets,
		lastUpdate: time.Now(),
	}
}

// Increment adds delta to the current bucket.
func (sw *slidingWindowCounter) Increment(delta int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance()
	sw.buckets[sw.current] += delta
}

// Count returns the sum of all buckets in the window.
func (sw *slidingWindowCounter) Count() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance()

	var total int64
	for _, count := range sw.buckets {
		total += count
	}
	return total
}

// advance moves the window forward based on elapsed time.
// Must be called with lock held.
func (sw *slidingWindowCounter) advance() {
	now := time.Now()
	elapsed := now.Sub(sw.lastUpdate)

	bucketsElapsed := int(elapsed / sw.bucketSize)
	if bucketsElapsed <= 0 {
		return
	}

	if bucketsElapsed >= sw.numBuckets {
		for i := range sw.buckets {
			sw.buckets[i] = 0
		}
		sw.current = 0
	} else {
		for i := 0; i < bucketsElapsed; i++ {
			sw.current = (sw.current + 1) % sw.numBuckets
			sw.buckets[sw.current] = 0
		}
	}

	sw.lastUpdate = now
}
