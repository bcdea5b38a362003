// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package eventprocessor

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/synzen/MonitoRSS-sub001/internal/logging"
)

// zerologAdapter bridges Watermill's logger interface onto the process-wide
// zerolog logger.
type zerologAdapter struct {
	fields watermill.LogFields
}

// NewWatermillLogger returns a Watermill logger writing through zerolog.
func NewWatermillLogger() watermill.LoggerAdapter {
	return &zerologAdapter{}
}

func (a *zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.emit(logging.Error().Err(err), msg, fields)
}

func (a *zerologAdapter) Info(msg string, fields watermill.LogFields) {
	a.emit(logging.Info(), msg, fields)
}

func (a *zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	a.emit(logging.Debug(), msg, fields)
}

func (a *zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	a.emit(logging.Debug(), msg, fields)
}

func (a *zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zerologAdapter{fields: a.fields.Add(fields)}
}

func (a *zerologAdapter) emit(event *zerolog.Event, msg string, fields watermill.LogFields) {
	for key, value := range a.fields {
		event = event.Interface(key, value)
	}
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(msg)
}
