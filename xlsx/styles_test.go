// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/streamsheet"
)

func TestStyleRegistryDedup(t *testing.T) {
	sr := newStyleRegistry(streamsheet.Style{})
	assert.Equal(t, 1, sr.Len())

	bold := streamsheet.Style{FontBold: true}
	id := sr.Register(bold)
	assert.Equal(t, 1, id)
	assert.Equal(t, id, sr.Register(bold))
	assert.Equal(t, 2, sr.Len())

	money := streamsheet.Style{Format: "#,##0.00"}
	assert.Equal(t, 2, sr.Register(money))
	assert.Equal(t, 2, sr.Register(money))
	assert.Equal(t, 3, sr.Len())

	// the default style keeps id 0
	assert.Equal(t, 0, sr.Register(streamsheet.Style{}))
}

func TestStyleSheetSerialization(t *testing.T) {
	sr := newStyleRegistry(streamsheet.Style{})
	sr.Register(streamsheet.Style{FontBold: true})
	sr.Register(streamsheet.Style{Format: "0.00", FontBold: true})

	var buf bytes.Buffer
	require.NoError(t, sr.writeStyleSheet(&buf))
	s := buf.String()

	assert.Contains(t, s, `<cellXfs count="3">`)
	assert.Contains(t, s, `<numFmts count="1">`)
	assert.Contains(t, s, `<numFmt numFmtId="164" formatCode="0.00"/>`)
	assert.Contains(t, s, `applyFont="1"`)
	assert.Contains(t, s, `applyNumberFormat="1"`)
	// the two mandatory fills and the empty border are always present
	assert.Contains(t, s, `patternType="gray125"`)
	assert.Contains(t, s, `<borders count="1">`)
}

func TestStyleSheetEscapesFormatCode(t *testing.T) {
	sr := newStyleRegistry(streamsheet.Style{})
	sr.Register(streamsheet.Style{Format: `0.0" <unit>"`})

	var buf bytes.Buffer
	require.NoError(t, sr.writeStyleSheet(&buf))
	s := buf.String()
	assert.Contains(t, s, `formatCode="0.0&quot; &lt;unit&gt;&quot;"`)
	assert.NotContains(t, s, `formatCode="0.0" <unit>""`)
}
