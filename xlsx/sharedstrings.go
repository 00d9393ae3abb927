// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"io"
	"strings"

	qt "github.com/valyala/quicktemplate"
)

// sharedStrings deduplicates cell strings into 0-based ids,
// first use wins.
type sharedStrings struct {
	ids  map[string]int
	list []string
	refs int
}

func newSharedStrings() *sharedStrings {
	return &sharedStrings{ids: make(map[string]int)}
}

// Intern returns the id of s, allocating one on first use.
func (ss *sharedStrings) Intern(s string) int {
	ss.refs++
	if id, ok := ss.ids[s]; ok {
		return id
	}
	id := len(ss.list)
	ss.list = append(ss.list, s)
	ss.ids[s] = id
	return id
}

// Len returns the number of distinct interned strings.
func (ss *sharedStrings) Len() int { return len(ss.list) }

func (ss *sharedStrings) writeSST(w io.Writer) error {
	ew := &errWriter{w: w}
	qw := qt.AcquireWriter(ew)
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<sst xmlns="` + nsSpreadsheetML + `" count="`)
	n.D(ss.refs)
	n.S(`" uniqueCount="`)
	n.D(len(ss.list))
	n.S(`">`)
	for _, s := range ss.list {
		if needsPreserve(s) {
			n.S(`<si><t xml:space="preserve">`)
		} else {
			n.S(`<si><t>`)
		}
		n.S(xmlEscape(s))
		n.S(`</t></si>`)
	}
	n.S(`</sst>`)
	qt.ReleaseWriter(qw)
	return ew.err
}

func needsPreserve(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || strings.ContainsAny(s, "\t\n\r")
}
