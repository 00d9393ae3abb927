// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/streamsheet"
)

func readPart(t *testing.T, b []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		return string(data)
	}
	t.Fatalf("part %q not found in archive", name)
	return ""
}

func partExists(t *testing.T, b []byte, name string) bool {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

type contentTypes struct {
	XMLName   xml.Name `xml:"Types"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

type relationshipsPart struct {
	XMLName xml.Name `xml:"Relationships"`
	Rels    []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type workbookPart struct {
	XMLName xml.Name `xml:"workbook"`
	Sheets  []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RelID   string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

func TestTwoSheetPackageConsistency(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	sh1, err := w.NewSheet("Sheet1", nil)
	require.NoError(t, err)
	require.NoError(t, sh1.AppendRow("a", 1))
	require.NoError(t, sh1.Close())

	sh2, err := w.NewSheet("Sheet2", nil)
	require.NoError(t, err)
	require.NoError(t, sh2.AppendRow("b", 2))
	require.NoError(t, sh2.Close())
	require.NoError(t, w.Close())
	b := buf.Bytes()

	var ct contentTypes
	require.NoError(t, xml.Unmarshal([]byte(readPart(t, b, "[Content_Types].xml")), &ct))
	var sheetOverrides []string
	for _, o := range ct.Overrides {
		if o.ContentType == ctWorksheet {
			sheetOverrides = append(sheetOverrides, o.PartName)
		}
	}
	assert.Equal(t, []string{"/xl/worksheets/sheet1.xml", "/xl/worksheets/sheet2.xml"}, sheetOverrides)

	var wb workbookPart
	require.NoError(t, xml.Unmarshal([]byte(readPart(t, b, "xl/workbook.xml")), &wb))
	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "Sheet1", wb.Sheets[0].Name)
	assert.Equal(t, 1, wb.Sheets[0].SheetID)
	assert.Equal(t, "Sheet2", wb.Sheets[1].Name)
	assert.Equal(t, 2, wb.Sheets[1].SheetID)
	assert.NotEqual(t, wb.Sheets[0].RelID, wb.Sheets[1].RelID)

	var rels relationshipsPart
	require.NoError(t, xml.Unmarshal([]byte(readPart(t, b, "xl/_rels/workbook.xml.rels")), &rels))
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = r.Target
	}
	// every sheet's relationship token resolves to a distinct target
	assert.Equal(t, "worksheets/sheet1.xml", targets[wb.Sheets[0].RelID])
	assert.Equal(t, "worksheets/sheet2.xml", targets[wb.Sheets[1].RelID])

	// fixed parts are present
	for _, name := range []string{"_rels/.rels", "docProps/core.xml", "docProps/app.xml", "xl/styles.xml", "xl/sharedStrings.xml"} {
		assert.True(t, partExists(t, b, name), name)
	}
}

func TestRoundTripThroughExcelize(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	sh, err := w.NewSheet("első", []streamsheet.Column{
		{Name: "Name", Header: streamsheet.Style{FontBold: true}},
		{Name: "Count", Header: streamsheet.Style{FontBold: true}},
	})
	require.NoError(t, err)
	require.NoError(t, sh.AppendRow("alpha", 12))
	require.NoError(t, sh.AppendRow("beta", 3.5))
	require.NoError(t, sh.AppendRow("alpha", streamsheet.Number("7")))
	require.NoError(t, sh.Close())

	sh2, err := w.NewSheet("", nil)
	require.NoError(t, err)
	require.NoError(t, sh2.AppendRow("only"))
	require.NoError(t, sh2.Close())
	require.NoError(t, w.Close())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"első", "Sheet2"}, f.GetSheetList())

	rows, err := f.GetRows("első")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Name", "Count"}, rows[0])
	assert.Equal(t, []string{"alpha", "12"}, rows[1])
	assert.Equal(t, []string{"beta", "3.5"}, rows[2])
	assert.Equal(t, []string{"alpha", "7"}, rows[3])

	v, err := f.GetCellValue("Sheet2", "A1")
	require.NoError(t, err)
	assert.Equal(t, "only", v)
}

func TestSheetNameEscapedInWorkbook(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	sh, err := w.NewSheet("P&L '26", nil)
	require.NoError(t, err)
	require.NoError(t, sh.Close())
	require.NoError(t, w.Close())

	s := readPart(t, buf.Bytes(), "xl/workbook.xml")
	assert.Contains(t, s, `name="P&amp;L &apos;26"`)
	assert.NotContains(t, s, `name="P&L`)
}

func TestSheetNameValidation(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	for _, name := range []string{"a[b", "a]b", "a:b", "a*b", "a?b", "a/b", `a\b`, strings.Repeat("x", 32)} {
		_, err = w.NewSheet(name, nil)
		assert.ErrorIs(t, err, streamsheet.ErrBadSheetName, name)
	}

	sh, err := w.NewSheet("Data", nil)
	require.NoError(t, err)
	require.NoError(t, sh.Close())
	// duplicates are rejected case-insensitively
	_, err = w.NewSheet("DATA", nil)
	assert.ErrorIs(t, err, streamsheet.ErrBadSheetName)
	require.NoError(t, w.Close())
}

func TestStateProtocol(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	sh, err := w.NewSheet("one", nil)
	require.NoError(t, err)
	// only one sheet may be streamed at a time
	_, err = w.NewSheet("two", nil)
	assert.ErrorIs(t, err, streamsheet.ErrSheetOpen)

	require.NoError(t, sh.Close())
	assert.ErrorIs(t, sh.AppendRow("late"), streamsheet.ErrClosed)
	// closing twice is fine
	require.NoError(t, sh.Close())

	sh2, err := w.NewSheet("two", nil)
	require.NoError(t, err)
	require.NoError(t, sh2.AppendRow("x"))
	// workbook close closes the open sheet first
	require.NoError(t, w.Close())
	assert.ErrorIs(t, sh2.AppendRow("late"), streamsheet.ErrClosed)
	_, err = w.NewSheet("three", nil)
	assert.ErrorIs(t, err, streamsheet.ErrClosed)
	require.NoError(t, w.Close())
}

func TestSharedStringsDeduplicated(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	sh, err := w.NewSheet("data", nil)
	require.NoError(t, err)
	require.NoError(t, sh.AppendRow("dup", "dup", "other"))
	require.NoError(t, sh.AppendRow("dup"))
	require.NoError(t, sh.Close())
	require.NoError(t, w.Close())

	sst := readPart(t, buf.Bytes(), "xl/sharedStrings.xml")
	assert.Contains(t, sst, `count="4" uniqueCount="2"`)
	assert.Equal(t, 2, strings.Count(sst, "<si>"))

	s := readPart(t, buf.Bytes(), "xl/worksheets/sheet1.xml")
	assert.Contains(t, s, `<c r="A1" t="s"><v>0</v></c>`)
	assert.Contains(t, s, `<c r="B1" t="s"><v>0</v></c>`)
	assert.Contains(t, s, `<c r="C1" t="s"><v>1</v></c>`)
	assert.Contains(t, s, `<c r="A2" t="s"><v>0</v></c>`)
}

func TestEmptySheetAndEmptyWorkbook(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	// no sheets: still a finalized, readable package
	assert.True(t, partExists(t, buf.Bytes(), "[Content_Types].xml"))
	assert.True(t, partExists(t, buf.Bytes(), "xl/workbook.xml"))

	buf.Reset()
	w, err = NewWriter(&buf)
	require.NoError(t, err)
	sh, err := w.NewSheet("empty", nil)
	require.NoError(t, err)
	require.NoError(t, sh.Close())
	require.NoError(t, w.Close())
	s := readPart(t, buf.Bytes(), "xl/worksheets/sheet1.xml")
	assert.Contains(t, s, `<sheetData></sheetData>`)
}
