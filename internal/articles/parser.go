// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package articles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// DefaultParseTimeout bounds parsing of untrusted feed bodies.
const DefaultParseTimeout = 10 * time.Second

var (
	// ErrInvalidFeed marks a body that is not a valid feed document.
	ErrInvalidFeed = errors.New("invalid feed document")

	// ErrParseTimeout marks a parse that exceeded its deadline.
	ErrParseTimeout = errors.New("feed parse timed out")
)

// Parser parses raw feed bodies (RSS, Atom, JSON Feed) under a deadline.
type Parser struct {
	// Timeout bounds one parse. Zero means DefaultParseTimeout.
	Timeout time.Duration
}

// NewParser returns a parser with the default deadline.
func NewParser() *Parser {
	return &Parser{Timeout: DefaultParseTimeout}
}

// Parse decodes body into a feed document. The parse runs on its own
// goroutine so a pathological body cannot stall the caller past the
// deadline; on timeout the goroutine is abandoned.
func (p *Parser) Parse(ctx context.Context, body []byte) (*gofeed.Feed, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultParseTimeout
	}

	type result struct {
		feed *gofeed.Feed
		err  error
	}

	done := make(chan result, 1)
	go func() {
		feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
		done <- result{feed: feed, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, res.err)
		}
		return res.feed, nil
	case <-timer.C:
		return nil, ErrParseTimeout
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrParseTimeout, ctx.Err())
	}
}
