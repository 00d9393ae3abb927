// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"
	"io"

	qt "github.com/valyala/quicktemplate"

	"github.com/UNO-SOFT/streamsheet"
)

// custom number formats start above the builtin ids
const customNumFmtBase = 164

// styleRegistry deduplicates style definitions into stable cellXf
// ids, first use wins. Id 0 is the workbook default style.
type styleRegistry struct {
	ids    map[string]int
	styles []streamsheet.Style
}

func newStyleRegistry(defaultStyle streamsheet.Style) *styleRegistry {
	return &styleRegistry{
		ids:    map[string]int{styleKey(defaultStyle): 0},
		styles: []streamsheet.Style{defaultStyle},
	}
}

func styleKey(s streamsheet.Style) string {
	return fmt.Sprintf("%t\t%s", s.FontBold, s.Format)
}

// Register returns the id of the style, allocating one on first use.
func (sr *styleRegistry) Register(style streamsheet.Style) int {
	k := styleKey(style)
	if id, ok := sr.ids[k]; ok {
		return id
	}
	id := len(sr.styles)
	sr.styles = append(sr.styles, style)
	sr.ids[k] = id
	return id
}

// Len returns the number of distinct registered styles.
func (sr *styleRegistry) Len() int { return len(sr.styles) }

func (sr *styleRegistry) writeStyleSheet(w io.Writer) error {
	numFmts := make(map[string]int, len(sr.styles))
	var order []string
	for _, s := range sr.styles {
		if s.Format == "" {
			continue
		}
		if _, ok := numFmts[s.Format]; !ok {
			numFmts[s.Format] = customNumFmtBase + len(order)
			order = append(order, s.Format)
		}
	}

	ew := &errWriter{w: w}
	qw := qt.AcquireWriter(ew)
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<styleSheet xmlns="` + nsSpreadsheetML + `">`)
	if len(order) != 0 {
		n.S(`<numFmts count="`)
		n.D(len(order))
		n.S(`">`)
		for _, f := range order {
			n.S(`<numFmt numFmtId="`)
			n.D(numFmts[f])
			n.S(`" formatCode="`)
			n.S(xmlEscape(f))
			n.S(`"/>`)
		}
		n.S(`</numFmts>`)
	}
	n.S(`<fonts count="2">` +
		`<font><sz val="11"/><name val="Calibri"/></font>` +
		`<font><b/><sz val="11"/><name val="Calibri"/></font>` +
		`</fonts>`)
	n.S(`<fills count="2">` +
		`<fill><patternFill patternType="none"/></fill>` +
		`<fill><patternFill patternType="gray125"/></fill>` +
		`</fills>`)
	n.S(`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>`)
	n.S(`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>`)
	n.S(`<cellXfs count="`)
	n.D(len(sr.styles))
	n.S(`">`)
	for _, s := range sr.styles {
		var fmtID, fontID int
		if s.Format != "" {
			fmtID = numFmts[s.Format]
		}
		if s.FontBold {
			fontID = 1
		}
		n.S(`<xf numFmtId="`)
		n.D(fmtID)
		n.S(`" fontId="`)
		n.D(fontID)
		n.S(`" fillId="0" borderId="0"`)
		if fmtID != 0 {
			n.S(` applyNumberFormat="1"`)
		}
		if fontID != 0 {
			n.S(` applyFont="1"`)
		}
		n.S(`/>`)
	}
	n.S(`</cellXfs></styleSheet>`)
	qt.ReleaseWriter(qw)
	return ew.err
}
