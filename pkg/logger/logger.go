/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog, plus the
// OpenTelemetry log, trace, and metric pipelines.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

type zerologLogger struct {
	mu     sync.RWMutex
	logger zerolog.Logger
}

// New builds a Logger from cfg. When OTel log export is enabled, records are
// written both to the local output and to the collector.
func New(ctx context.Context, cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var output io.Writer = os.Stdout

	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "discard":
		output = io.Discard
	}

	level := zerolog.InfoLevel

	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}

		level = parsed
	}

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	if cfg.OTel.Enabled {
		otelWriter, err := NewOTELWriter(ctx, cfg.OTel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTel logging: %w", err)
		}

		output = NewMultiWriter(output, otelWriter)
	}

	return &zerologLogger{
		logger: zerolog.New(output).Level(level).With().Timestamp().Logger(),
	}, nil
}

// NewWithWriter builds a Logger that writes JSON lines to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (l *zerologLogger) current() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lg := l.logger

	return &lg
}

func (l *zerologLogger) Trace() *zerolog.Event { return l.current().Trace() }
func (l *zerologLogger) Debug() *zerolog.Event { return l.current().Debug() }
func (l *zerologLogger) Info() *zerolog.Event  { return l.current().Info() }
func (l *zerologLogger) Warn() *zerolog.Event  { return l.current().Warn() }
func (l *zerologLogger) Error() *zerolog.Event { return l.current().Error() }
func (l *zerologLogger) Fatal() *zerolog.Event { return l.current().Fatal() }
func (l *zerologLogger) Panic() *zerolog.Event { return l.current().Panic() }
func (l *zerologLogger) With() zerolog.Context { return l.current().With() }

func (l *zerologLogger) WithComponent(component string) zerolog.Logger {
	return l.current().With().Str("component", component).Logger()
}

func (l *zerologLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.current().With().Fields(fields).Logger()
}

func (l *zerologLogger) SetLevel(level zerolog.Level) {
	l.mu.Lock()
	l.logger = l.logger.Level(level)
	l.mu.Unlock()
}

func (l *zerologLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)

		return
	}

	l.SetLevel(zerolog.InfoLevel)
}

// ComponentLogger wraps a zerolog.Logger already tagged with a component so it
// can be handed to code that takes a Logger.
type ComponentLogger struct {
	logger zerolog.Logger
}

// Component returns a Logger whose records carry component=name.
func Component(parent Logger, name string) Logger {
	if parent == nil {
		return NewTestLogger()
	}

	return &ComponentLogger{logger: parent.WithComponent(name)}
}

func (c *ComponentLogger) Trace() *zerolog.Event { return c.logger.Trace() }
func (c *ComponentLogger) Debug() *zerolog.Event { return c.logger.Debug() }
func (c *ComponentLogger) Info() *zerolog.Event  { return c.logger.Info() }
func (c *ComponentLogger) Warn() *zerolog.Event  { return c.logger.Warn() }
func (c *ComponentLogger) Error() *zerolog.Event { return c.logger.Error() }
func (c *ComponentLogger) Fatal() *zerolog.Event { return c.logger.Fatal() }
func (c *ComponentLogger) Panic() *zerolog.Event { return c.logger.Panic() }
func (c *ComponentLogger) With() zerolog.Context { return c.logger.With() }

func (c *ComponentLogger) WithComponent(component string) zerolog.Logger {
	return c.logger.With().Str("component", component).Logger()
}

func (c *ComponentLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return c.logger.With().Fields(fields).Logger()
}

func (c *ComponentLogger) SetLevel(level zerolog.Level) {
	c.logger = c.logger.Level(level)
}

func (c *ComponentLogger) SetDebug(debug bool) {
	if debug {
		c.SetLevel(zerolog.DebugLevel)

		return
	}

	c.SetLevel(zerolog.InfoLevel)
}
