// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFlushRate caps terminal flushes while a reply streams in.
const DefaultFlushRate = rate.Limit(30)

// FlushInterval is how often pending output is flushed when no new
// fragment arrives.
const FlushInterval = time.Second / 30

// =============================================================================
// STREAM PRINTER
// =============================================================================

// StreamPrinter writes streamed fragments through a buffer and flushes it
// at most at the limiter's rate. Every fragment is written in order; only
// the flushes are coalesced. Not safe for concurrent use.
type StreamPrinter struct {
	w       *bufio.Writer
	limiter *rate.Limiter

	// lineStart is true when the last byte written was a newline or
	// nothing has been written.
	lineStart bool
	flushes   int
}

// NewStreamPrinter creates a printer over w. A zero limit means
// DefaultFlushRate.
func NewStreamPrinter(w io.Writer, limit rate.Limit) *StreamPrinter {
	if limit <= 0 {
		limit = DefaultFlushRate
	}
	return &StreamPrinter{
		w:         bufio.NewWriterSize(w, 16*1024),
		limiter:   rate.NewLimiter(limit, 1),
		lineStart: true,
	}
}

// Fragment writes a piece of streamed text and flushes if the limiter
// allows.
func (p *StreamPrinter) Fragment(s string) error {
	if s == "" {
		return nil
	}
	if err := p.write(s); err != nil {
		return err
	}
	if p.limiter.Allow() {
		return p.Flush()
	}
	return nil
}

// Block writes s on lines of its own and flushes.
func (p *StreamPrinter) Block(s string) error {
	if err := p.EndLine(); err != nil {
		return err
	}
	if err := p.write(s + "\n"); err != nil {
		return err
	}
	return p.Flush()
}

// Line is Block for a single line.
func (p *StreamPrinter) Line(s string) error {
	return p.Block(s)
}

// EndLine terminates a partial line.
func (p *StreamPrinter) EndLine() error {
	if p.lineStart {
		return nil
	}
	return p.write("\n")
}

// Flush writes buffered output through.
func (p *StreamPrinter) Flush() error {
	if p.w.Buffered() == 0 {
		return nil
	}
	p.flushes++
	return p.w.Flush()
}

// Flushes returns how many flushes reached the underlying writer.
func (p *StreamPrinter) Flushes() int {
	return p.flushes
}

func (p *StreamPrinter) write(s string) error {
	if _, err := p.w.WriteString(s); err != nil {
		return err
	}
	p.lineStart = strings.HasSuffix(s, "\n")
	return nil
}
