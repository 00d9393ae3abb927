// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/UNO-SOFT/streamsheet"
)

// ArchiveSink is an append-only archive entry writer.
// At most one entry may be open at a time, entries are write-once:
// once closed they are never reopened or amended.
type ArchiveSink interface {
	// OpenEntry starts a new entry with the given path and returns
	// the writer for its contents. The returned writer is valid
	// until CloseEntry.
	OpenEntry(name string) (io.Writer, error)
	// CloseEntry finishes the currently open entry.
	CloseEntry() error
	// Close finalizes the archive. It does not close the
	// underlying writer.
	Close() error
}

var errEntryOpen = errors.New("another entry is open")

type zipSink struct {
	zw     *zip.Writer
	cur    io.Writer
	closed bool
}

func newZipSink(w io.Writer) *zipSink { return &zipSink{zw: zip.NewWriter(w)} }

func (z *zipSink) OpenEntry(name string) (io.Writer, error) {
	if z.closed {
		return nil, fmt.Errorf("open %q: %w", name, streamsheet.ErrClosed)
	}
	if z.cur != nil {
		return nil, fmt.Errorf("open %q: %w", name, errEntryOpen)
	}
	w, err := z.zw.CreateHeader(&zip.FileHeader{
		Name: name, Method: zip.Deflate, Modified: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}
	z.cur = w
	return w, nil
}

func (z *zipSink) CloseEntry() error {
	if z.closed {
		return streamsheet.ErrClosed
	}
	// the zip writer finishes the entry on the next create/close
	z.cur = nil
	return nil
}

func (z *zipSink) Close() error {
	if z.closed {
		return nil
	}
	z.closed, z.cur = true, nil
	return z.zw.Close()
}

// errWriter remembers the first write error, so part emitters can
// write without checking after every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}
