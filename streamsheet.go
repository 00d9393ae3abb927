// Copyright 2020, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package streamsheet provides interfaces for writing spreadsheets
// sheet by sheet, row by row, to an ordinary io.Writer.
package streamsheet

import (
	"errors"
	"io"
)

// Writer writes the spreadsheet consisting of the sheets created
// with NewSheet. The write finishes when Close is called.
//
// The writer SHOULD allow writing to separate sheets concurrently,
// and document if it does not provide this functionality.
type Writer interface {
	io.Closer
	NewSheet(name string, cols []Column) (Sheet, error)
}

// Sheet should be Closed when finished.
type Sheet interface {
	io.Closer
	AppendRow(values ...any) error
}

// Style is a style for a column/row/cell.
type Style struct {
	// Format is the number format
	Format string
	// FontBold is true if the font is bold
	FontBold bool
}

// IsZero reports whether the style is the default style.
func (s Style) IsZero() bool { return !s.FontBold && s.Format == "" }

// Column contains the Name of the column and header's style and column's style.
type Column struct {
	Name           string
	Header, Column Style
}

var (
	// ErrTooManyRows is returned when a sheet would exceed the row
	// ceiling of the output format.
	ErrTooManyRows = errors.New("too many rows")
	// ErrClosed is returned for operations on an already closed
	// writer or sheet, and for out-of-order finalization.
	ErrClosed = errors.New("already closed")
	// ErrSheetOpen is returned by NewSheet while another sheet is
	// still open on a writer that streams one sheet at a time.
	ErrSheetOpen = errors.New("another sheet is open")
	// ErrBadSheetName is returned for empty, duplicate or
	// invalid sheet names.
	ErrBadSheetName = errors.New("invalid sheet name")
	// ErrUnsupportedType is returned for cell values outside the
	// supported set. The returned error names the offending type.
	ErrUnsupportedType = errors.New("unsupported value type")
)

// Number is a string that contains a number.
type Number string
