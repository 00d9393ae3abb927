// Copyright 2020, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/bytebufferpool"
	qt "github.com/valyala/quicktemplate"

	"github.com/UNO-SOFT/streamsheet"
)

// MaxRowCount is the number of maximum rows.
const MaxRowCount = 1_048_576

// Sheet streams one worksheet's rows into one archive entry.
// Nothing beyond the current row is held in memory.
type Sheet struct {
	wr     *Writer
	w      *errWriter
	Name   string
	row    int64
	closed bool
}

const (
	cellEmpty = iota
	cellString
	cellBool
	cellNumber
)

// cellValue is the closed set of cell variants.
type cellValue struct {
	str  string
	kind int
	b    bool
}

// classifyValue maps a dynamic value onto the cell variants,
// unwrapping database/sql and Stringer values first. Empty means the
// cell element is omitted entirely (numeric 0 and false are not empty).
func classifyValue(v any) (cellValue, error) {
	if vr, ok := v.(driver.Valuer); ok {
		if vv, err := vr.Value(); err == nil {
			v = vv
		}
	}
	switch x := v.(type) {
	case nil:
		return cellValue{}, nil
	case time.Time:
		if x.IsZero() {
			return cellValue{}, nil
		}
		v = x.Format("2006-01-02")
	case sql.NullTime:
		if !x.Valid || x.Time.IsZero() {
			return cellValue{}, nil
		}
		v = x.Time.Format("2006-01-02")
	case sql.NullFloat64:
		if !x.Valid {
			return cellValue{}, nil
		}
		v = x.Float64
	case sql.NullInt64:
		if !x.Valid {
			return cellValue{}, nil
		}
		v = x.Int64
	case sql.NullString:
		if !x.Valid {
			return cellValue{}, nil
		}
		v = x.String
	case sql.NullBool:
		if !x.Valid {
			return cellValue{}, nil
		}
		v = x.Bool
	case []byte:
		v = string(x)
	}

	switch x := v.(type) {
	case string:
		if x == "" {
			return cellValue{}, nil
		}
		return cellValue{kind: cellString, str: x}, nil
	case bool:
		return cellValue{kind: cellBool, b: x}, nil
	case streamsheet.Number:
		if x == "" {
			return cellValue{}, nil
		}
		return cellValue{kind: cellNumber, str: string(x)}, nil
	case int:
		return cellValue{kind: cellNumber, str: strconv.FormatInt(int64(x), 10)}, nil
	case int8:
		return cellValue{kind: cellNumber, str: strconv.FormatInt(int64(x), 10)}, nil
	case int16:
		return cellValue{kind: cellNumber, str: strconv.FormatInt(int64(x), 10)}, nil
	case int32:
		return cellValue{kind: cellNumber, str: strconv.FormatInt(int64(x), 10)}, nil
	case int64:
		return cellValue{kind: cellNumber, str: strconv.FormatInt(x, 10)}, nil
	case uint:
		return cellValue{kind: cellNumber, str: strconv.FormatUint(uint64(x), 10)}, nil
	case uint8:
		return cellValue{kind: cellNumber, str: strconv.FormatUint(uint64(x), 10)}, nil
	case uint16:
		return cellValue{kind: cellNumber, str: strconv.FormatUint(uint64(x), 10)}, nil
	case uint32:
		return cellValue{kind: cellNumber, str: strconv.FormatUint(uint64(x), 10)}, nil
	case uint64:
		return cellValue{kind: cellNumber, str: strconv.FormatUint(x, 10)}, nil
	case float32:
		return cellValue{kind: cellNumber, str: strconv.FormatFloat(float64(x), 'f', -1, 32)}, nil
	case float64:
		return cellValue{kind: cellNumber, str: strconv.FormatFloat(x, 'f', -1, 64)}, nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		if t := s.String(); t != "" {
			return cellValue{kind: cellString, str: t}, nil
		}
		return cellValue{}, nil
	}
	return cellValue{}, fmt.Errorf("%T: %w", v, streamsheet.ErrUnsupportedType)
}

// AppendRow appends the values as the next row, in the writer's
// default row style.
func (sh *Sheet) AppendRow(values ...any) error {
	return sh.appendRow(nil, values)
}

// AppendRowStyle appends the values as the next row, every cell
// carrying the given style.
func (sh *Sheet) AppendRowStyle(style *streamsheet.Style, values ...any) error {
	return sh.appendRow(style, values)
}

func (sh *Sheet) appendRow(style *streamsheet.Style, values []any) error {
	sh.wr.mu.Lock()
	defer sh.wr.mu.Unlock()
	if sh.closed || sh.wr.closed {
		return fmt.Errorf("%s: %w", sh.Name, streamsheet.ErrClosed)
	}
	if sh.row >= MaxRowCount {
		return streamsheet.ErrTooManyRows
	}
	rowIdx := sh.row + 1
	// classify the whole row first: a rejected value must not leave
	// a partial row in the sink, nor pollute the registries
	cells := make([]cellValue, len(values))
	for i, v := range values {
		cv, err := classifyValue(v)
		if err != nil {
			return fmt.Errorf("%s row %d col %s: %w", sh.Name, rowIdx, colName(i), err)
		}
		cells[i] = cv
	}
	var styleID int
	if style != nil {
		styleID = sh.wr.styles.Register(*style)
	}
	styleIDs := make([]int, len(cells))
	for i := range styleIDs {
		styleIDs[i] = styleID
	}
	if err := sh.writeRow(rowIdx, cells, styleIDs); err != nil {
		return fmt.Errorf("%s row %d: %w", sh.Name, rowIdx, err)
	}
	sh.row = rowIdx
	return nil
}

// writeRow builds the whole row in a pooled buffer and flushes it in
// one Write. Caller holds the writer lock.
func (sh *Sheet) writeRow(rowIdx int64, cells []cellValue, styleIDs []int) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	qw := qt.AcquireWriter(bb)
	n := qw.N()
	n.S(`<row r="`)
	n.DL(rowIdx)
	n.S(`"`)
	if len(cells) > 0 {
		n.S(` spans="1:`)
		n.D(len(cells))
		n.S(`"`)
	}
	n.S(`>`)
	rowNum := strconv.FormatInt(rowIdx, 10)
	for i, cv := range cells {
		sh.writeCell(n, colName(i)+rowNum, cv, styleIDs[i])
	}
	n.S(`</row>`)
	qt.ReleaseWriter(qw)
	_, err := sh.w.Write(bb.B)
	return err
}

func (sh *Sheet) writeCell(n *qt.QWriter, ref string, cv cellValue, styleID int) {
	if cv.kind == cellEmpty {
		return
	}
	n.S(`<c r="`)
	n.S(ref)
	n.S(`"`)
	if styleID != 0 {
		n.S(` s="`)
		n.D(styleID)
		n.S(`"`)
	}
	switch cv.kind {
	case cellString:
		if sh.wr.shared != nil {
			n.S(` t="s"><v>`)
			n.D(sh.wr.shared.Intern(cv.str))
			n.S(`</v></c>`)
		} else {
			n.S(` t="inlineStr"><is><t`)
			if needsPreserve(cv.str) {
				n.S(` xml:space="preserve"`)
			}
			n.S(`>`)
			n.S(xmlEscape(cv.str))
			n.S(`</t></is></c>`)
		}
	case cellBool:
		if cv.b {
			n.S(` t="b"><v>1</v></c>`)
		} else {
			n.S(` t="b"><v>0</v></c>`)
		}
	case cellNumber:
		n.S(`><v>`)
		n.S(cv.str)
		n.S(`</v></c>`)
	}
}

// writeHeader emits the worksheet preamble and, when any column is
// named, the header row. Caller holds the writer lock.
func (sh *Sheet) writeHeader(cols []streamsheet.Column) error {
	var hasHeader, hasColStyle bool
	for _, c := range cols {
		hasHeader = hasHeader || c.Name != ""
		hasColStyle = hasColStyle || !c.Column.IsZero()
	}

	ew := sh.w
	qw := qt.AcquireWriter(ew)
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<worksheet xmlns="` + nsSpreadsheetML + `">`)
	if hasColStyle {
		n.S(`<cols>`)
		for i, c := range cols {
			if c.Column.IsZero() {
				continue
			}
			n.S(`<col min="`)
			n.D(i + 1)
			n.S(`" max="`)
			n.D(i + 1)
			n.S(`" style="`)
			n.D(sh.wr.styles.Register(c.Column))
			n.S(`"/>`)
		}
		n.S(`</cols>`)
	}
	n.S(`<sheetData>`)
	qt.ReleaseWriter(qw)
	if ew.err != nil {
		return fmt.Errorf("%s: %w", sh.Name, ew.err)
	}
	if !hasHeader {
		return nil
	}

	cells := make([]cellValue, len(cols))
	styleIDs := make([]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			continue
		}
		cells[i] = cellValue{kind: cellString, str: c.Name}
		if !c.Header.IsZero() {
			styleIDs[i] = sh.wr.styles.Register(c.Header)
		}
	}
	if err := sh.writeRow(1, cells, styleIDs); err != nil {
		return fmt.Errorf("%s header: %w", sh.Name, err)
	}
	sh.row = 1
	return nil
}

// Close appends the closing tags and closes the archive entry.
// Closing an already closed sheet is a no-op.
func (sh *Sheet) Close() error {
	sh.wr.mu.Lock()
	defer sh.wr.mu.Unlock()
	return sh.closeLocked()
}

func (sh *Sheet) closeLocked() error {
	if sh.closed {
		return nil
	}
	sh.closed = true
	if _, err := sh.w.Write([]byte(`</sheetData></worksheet>`)); err != nil {
		return fmt.Errorf("%s: %w", sh.Name, err)
	}
	if err := sh.wr.sink.CloseEntry(); err != nil {
		return fmt.Errorf("%s: %w", sh.Name, err)
	}
	return nil
}
