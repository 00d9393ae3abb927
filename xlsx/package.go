// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"
	"io"
	"time"

	qt "github.com/valyala/quicktemplate"

	"github.com/UNO-SOFT/streamsheet"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsSpreadsheetML = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsDocRels       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"

	ctRels          = "application/vnd.openxmlformats-package.relationships+xml"
	ctXML           = "application/xml"
	ctWorkbook      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ctWorksheet     = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ctStyles        = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	ctSharedStrings = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	ctCore          = "application/vnd.openxmlformats-package.core-properties+xml"
	ctApp           = "application/vnd.openxmlformats-officedocument.extended-properties+xml"

	relOfficeDocument = nsDocRels + "/officeDocument"
	relWorksheet      = nsDocRels + "/worksheet"
	relStyles         = nsDocRels + "/styles"
	relSharedStrings  = nsDocRels + "/sharedStrings"
	relApp            = nsDocRels + "/extended-properties"
	relCore           = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
)

const (
	pathRootRels      = "_rels/.rels"
	pathCore          = "docProps/core.xml"
	pathApp           = "docProps/app.xml"
	pathContentTypes  = "[Content_Types].xml"
	pathWorkbook      = "xl/workbook.xml"
	pathWorkbookRels  = "xl/_rels/workbook.xml.rels"
	pathStyles        = "xl/styles.xml"
	pathSharedStrings = "xl/sharedStrings.xml"
)

// sheetPath returns the archive path of the worksheet part.
// Filenames derive from the dense sheet id, never from the name.
func sheetPath(id int) string { return fmt.Sprintf("xl/worksheets/sheet%d.xml", id) }

func relID(i int) string { return fmt.Sprintf("rId%d", i) }

type sheetMeta struct {
	Name string
	ID   int
}

// packageAssembler owns the package layout: the structurally fixed
// parts go out at construction, the parts that depend on the final
// sheet/style/string counts only at finalize.
type packageAssembler struct {
	sink         ArchiveSink
	created      time.Time
	skeletonDone bool
	finalized    bool
}

// emit writes one whole part: open entry, emit, close entry.
func (pa *packageAssembler) emit(name string, f func(io.Writer) error) error {
	w, err := pa.sink.OpenEntry(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	ew := &errWriter{w: w}
	if err = f(ew); err == nil {
		err = ew.err
	}
	if cerr := pa.sink.CloseEntry(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// writeSkeleton emits the structurally fixed parts. Runs exactly
// once, before any sheet is created.
func (pa *packageAssembler) writeSkeleton() error {
	if pa.skeletonDone {
		return fmt.Errorf("package skeleton: %w", streamsheet.ErrClosed)
	}
	pa.skeletonDone = true
	if err := pa.emit(pathRootRels, writeRootRels); err != nil {
		return err
	}
	if err := pa.emit(pathCore, pa.writeCore); err != nil {
		return err
	}
	return pa.emit(pathApp, writeApp)
}

// finalize emits the deferred parts. Runs exactly once, only after
// every sheet has been closed.
func (pa *packageAssembler) finalize(sheets []sheetMeta, styles *styleRegistry, shared *sharedStrings) error {
	if !pa.skeletonDone || pa.finalized {
		return fmt.Errorf("package finalize: %w", streamsheet.ErrClosed)
	}
	pa.finalized = true
	if err := pa.emit(pathContentTypes, func(w io.Writer) error {
		return writeContentTypes(w, sheets, shared != nil)
	}); err != nil {
		return err
	}
	if err := pa.emit(pathWorkbook, func(w io.Writer) error {
		return writeWorkbook(w, sheets)
	}); err != nil {
		return err
	}
	if err := pa.emit(pathWorkbookRels, func(w io.Writer) error {
		return writeWorkbookRels(w, sheets, shared != nil)
	}); err != nil {
		return err
	}
	if err := pa.emit(pathStyles, styles.writeStyleSheet); err != nil {
		return err
	}
	if shared != nil {
		return pa.emit(pathSharedStrings, shared.writeSST)
	}
	return nil
}

func writeRootRels(w io.Writer) error {
	_, err := io.WriteString(w, xmlHeader+
		`<Relationships xmlns="`+nsRelationships+`">`+
		`<Relationship Id="rId1" Type="`+relOfficeDocument+`" Target="xl/workbook.xml"/>`+
		`<Relationship Id="rId2" Type="`+relCore+`" Target="docProps/core.xml"/>`+
		`<Relationship Id="rId3" Type="`+relApp+`" Target="docProps/app.xml"/>`+
		`</Relationships>`)
	return err
}

func (pa *packageAssembler) writeCore(w io.Writer) error {
	created := pa.created.UTC().Format("2006-01-02T15:04:05Z")
	_, err := io.WriteString(w, xmlHeader+
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"`+
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"`+
		` xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`+
		`<dcterms:created xsi:type="dcterms:W3CDTF">`+created+`</dcterms:created>`+
		`<dcterms:modified xsi:type="dcterms:W3CDTF">`+created+`</dcterms:modified>`+
		`</cp:coreProperties>`)
	return err
}

func writeApp(w io.Writer) error {
	_, err := io.WriteString(w, xmlHeader+
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`+
		`<Application>streamsheet</Application>`+
		`</Properties>`)
	return err
}

func writeContentTypes(w io.Writer, sheets []sheetMeta, shared bool) error {
	ew := &errWriter{w: w}
	qw := qt.AcquireWriter(ew)
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<Types xmlns="` + nsContentTypes + `">`)
	n.S(`<Default Extension="rels" ContentType="` + ctRels + `"/>`)
	n.S(`<Default Extension="xml" ContentType="` + ctXML + `"/>`)
	n.S(`<Override PartName="/xl/workbook.xml" ContentType="` + ctWorkbook + `"/>`)
	for _, sh := range sheets {
		n.S(`<Override PartName="/`)
		n.S(sheetPath(sh.ID))
		n.S(`" ContentType="` + ctWorksheet + `"/>`)
	}
	n.S(`<Override PartName="/xl/styles.xml" ContentType="` + ctStyles + `"/>`)
	if shared {
		n.S(`<Override PartName="/xl/sharedStrings.xml" ContentType="` + ctSharedStrings + `"/>`)
	}
	n.S(`<Override PartName="/docProps/core.xml" ContentType="` + ctCore + `"/>`)
	n.S(`<Override PartName="/docProps/app.xml" ContentType="` + ctApp + `"/>`)
	n.S(`</Types>`)
	qt.ReleaseWriter(qw)
	return ew.err
}

func writeWorkbook(w io.Writer, sheets []sheetMeta) error {
	ew := &errWriter{w: w}
	qw := qt.AcquireWriter(ew)
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<workbook xmlns="` + nsSpreadsheetML + `" xmlns:r="` + nsDocRels + `">`)
	n.S(`<sheets>`)
	for _, sh := range sheets {
		n.S(`<sheet name="`)
		n.S(xmlEscape(sh.Name))
		n.S(`" sheetId="`)
		n.D(sh.ID)
		n.S(`" r:id="`)
		n.S(relID(sh.ID))
		n.S(`"/>`)
	}
	n.S(`</sheets></workbook>`)
	qt.ReleaseWriter(qw)
	return ew.err
}

func writeWorkbookRels(w io.Writer, sheets []sheetMeta, shared bool) error {
	ew := &errWriter{w: w}
	qw := qt.AcquireWriter(ew)
	n := qw.N()
	n.S(xmlHeader)
	n.S(`<Relationships xmlns="` + nsRelationships + `">`)
	for _, sh := range sheets {
		n.S(`<Relationship Id="`)
		n.S(relID(sh.ID))
		n.S(`" Type="` + relWorksheet + `" Target="worksheets/sheet`)
		n.D(sh.ID)
		n.S(`.xml"/>`)
	}
	n.S(`<Relationship Id="`)
	n.S(relID(len(sheets) + 1))
	n.S(`" Type="` + relStyles + `" Target="styles.xml"/>`)
	if shared {
		n.S(`<Relationship Id="`)
		n.S(relID(len(sheets) + 2))
		n.S(`" Type="` + relSharedStrings + `" Target="sharedStrings.xml"/>`)
	}
	n.S(`</Relationships>`)
	qt.ReleaseWriter(qw)
	return ew.err
}
