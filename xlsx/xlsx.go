// Copyright 2020, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx writes OOXML (SpreadsheetML) workbooks as a stream:
// rows go out as they are appended, and only the small metadata
// parts that depend on the final sheet list are kept back until
// Close. The output needs nothing from the destination but ordered
// appends, so it can go straight to a socket or pipe.
package xlsx

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/UNO-SOFT/streamsheet"
)

var _ = (streamsheet.Writer)((*Writer)(nil))
var _ = (streamsheet.Sheet)((*Sheet)(nil))

// Writer writes one workbook to an append-only sink.
//
// This writer streams, so it does NOT allow concurrent writes to
// separate sheets: only one sheet may be open at a time, and a new
// sheet can be started only after the previous one is closed.
type Writer struct {
	sink   ArchiveSink
	pkg    *packageAssembler
	styles *styleRegistry
	shared *sharedStrings // nil in inline-string mode
	names  map[string]struct{}
	cur    *Sheet
	sheets []sheetMeta
	mu     sync.Mutex
	closed bool
}

type config struct {
	defaultRowStyle streamsheet.Style
	inlineStrings   bool
}

// Option configures the writer at construction. The configuration is
// fixed for the workbook's whole lifetime.
type Option func(*config)

// WithInlineStrings writes cell strings inline instead of through
// the shared string table.
func WithInlineStrings() Option {
	return func(c *config) { c.inlineStrings = true }
}

// WithDefaultRowStyle sets the style of cells appended without an
// explicit style.
func WithDefaultRowStyle(style streamsheet.Style) Option {
	return func(c *config) { c.defaultRowStyle = style }
}

// NewWriter returns a streaming workbook writer on w, writing the
// fixed package parts immediately.
func NewWriter(w io.Writer, options ...Option) (*Writer, error) {
	return NewWriterSink(newZipSink(w), options...)
}

// NewWriterSink is NewWriter with a caller-provided archive sink.
func NewWriterSink(sink ArchiveSink, options ...Option) (*Writer, error) {
	var cfg config
	for _, o := range options {
		o(&cfg)
	}
	wr := &Writer{
		sink:   sink,
		pkg:    &packageAssembler{sink: sink, created: time.Now()},
		styles: newStyleRegistry(cfg.defaultRowStyle),
		names:  make(map[string]struct{}),
	}
	if !cfg.inlineStrings {
		wr.shared = newSharedStrings()
	}
	if err := wr.pkg.writeSkeleton(); err != nil {
		return nil, err
	}
	return wr, nil
}

// NewSheet starts the next sheet. An empty name gets one synthesized
// from the sheet's id. Named columns produce a first header row,
// styled per Column.Header; Column.Column styles apply to the whole
// column. The previously started sheet must be closed first.
func (wr *Writer) NewSheet(name string, cols []streamsheet.Column) (streamsheet.Sheet, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if wr.closed {
		return nil, fmt.Errorf("NewSheet: %w", streamsheet.ErrClosed)
	}
	if wr.cur != nil && !wr.cur.closed {
		return nil, fmt.Errorf("NewSheet %q: %w", name, streamsheet.ErrSheetOpen)
	}
	id := len(wr.sheets) + 1
	if name == "" {
		name = fmt.Sprintf("Sheet%d", id)
	}
	if err := checkSheetName(name); err != nil {
		return nil, err
	}
	key := strings.ToLower(name)
	if _, ok := wr.names[key]; ok {
		return nil, fmt.Errorf("%q: duplicate name: %w", name, streamsheet.ErrBadSheetName)
	}

	w, err := wr.sink.OpenEntry(sheetPath(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sheetPath(id), err)
	}
	wr.names[key] = struct{}{}
	wr.sheets = append(wr.sheets, sheetMeta{Name: name, ID: id})
	sh := &Sheet{wr: wr, w: &errWriter{w: w}, Name: name}
	if err = sh.writeHeader(cols); err != nil {
		return nil, err
	}
	wr.cur = sh
	return sh, nil
}

// Close closes the still-open sheet if any, writes the deferred
// metadata parts and finalizes the archive. The writer is terminal
// afterwards. Closing twice is a no-op.
func (wr *Writer) Close() error {
	if wr == nil {
		return nil
	}
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if wr.closed {
		return nil
	}
	if wr.cur != nil {
		if err := wr.cur.closeLocked(); err != nil {
			return err
		}
		wr.cur = nil
	}
	wr.closed = true
	if err := wr.pkg.finalize(wr.sheets, wr.styles, wr.shared); err != nil {
		return err
	}
	return wr.sink.Close()
}

const maxSheetNameLen = 31

const badSheetNameChars = `[]:*?/\`

func checkSheetName(name string) error {
	if name == "" {
		return streamsheet.ErrBadSheetName
	}
	if utf8.RuneCountInString(name) > maxSheetNameLen {
		return fmt.Errorf("%q: longer than %d characters: %w",
			name, maxSheetNameLen, streamsheet.ErrBadSheetName)
	}
	if i := strings.IndexAny(name, badSheetNameChars); i >= 0 {
		return fmt.Errorf("%q: %q not allowed: %w",
			name, name[i], streamsheet.ErrBadSheetName)
	}
	return nil
}
