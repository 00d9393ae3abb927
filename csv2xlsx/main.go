// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command csv2xlsx converts CSV files into one streamed .xlsx
// workbook, one sheet per input, without holding sheets in memory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/UNO-SOFT/streamsheet"
	"github.com/UNO-SOFT/streamsheet/xlsx"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		slog.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	slog.SetDefault(logger)

	fs := flag.NewFlagSet("csv2xlsx", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	flagEnc := fs.String("charset", streamsheet.EncName, "csv charset name")
	flagOut := fs.String("o", "-", "output file name (default: stdout)")
	flagInline := fs.Bool("inline-strings", false, "write cell strings inline instead of the shared string table")

	app := ffcli.Command{Name: "csv2xlsx", FlagSet: fs,
		ShortUsage: "csv2xlsx [flags] [sheetname:]file.csv...",
		Exec: func(ctx context.Context, args []string) error {
			fn := *flagOut
			fh := os.Stdout
			if !(fn == "" || fn == "-") {
				var err error
				if fh, err = os.Create(fn); err != nil {
					return err
				}
			}
			defer fh.Close()

			var options []xlsx.Option
			if *flagInline {
				options = append(options, xlsx.WithInlineStrings())
			}
			w, err := xlsx.NewWriter(fh, options...)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				args = []string{"-"}
			}
			for i, fn := range args {
				sheetName := fmt.Sprintf("Sheet%d", i+1)
				if i := strings.IndexByte(fn, ':'); i >= 0 {
					sheetName, fn = fn[:i], fn[i+1:]
				} else if fn != "" && fn != "-" {
					sheetName = strings.TrimSuffix(filepath.Base(fn), ".csv")
				}
				if err := copyFile(ctx, w, sheetName, *flagEnc, fn); err != nil {
					return fmt.Errorf("%q: %w", fn, err)
				}
			}

			if err := w.Close(); err != nil {
				return err
			}
			return fh.Close()
		},
	}
	if err := app.Parse(os.Args[1:]); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}

func copyFile(ctx context.Context, w streamsheet.Writer, sheetName, encName, fn string) error {
	cr, err := streamsheet.OpenCsv(fn, encName)
	if err != nil {
		return fmt.Errorf("open %q: %w", fn, err)
	}
	defer cr.Close()

	row, err := cr.Read()
	if err != nil {
		return err
	}
	cols := make([]streamsheet.Column, len(row))
	for i, r := range row {
		cols[i].Name = r
		cols[i].Header.FontBold = true
	}
	sheet, err := w.NewSheet(sheetName, cols)
	if err != nil {
		return err
	}
	slog.Debug("sheet", "name", sheetName, "columns", len(cols))

	var rowI []any
	var n int64
	for {
		if err = ctx.Err(); err != nil {
			return err
		}
		if row, err = cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		rowI = rowI[:0]
		for _, s := range row {
			rowI = append(rowI, s)
		}
		if err = sheet.AppendRow(rowI...); err != nil {
			return err
		}
		n++
	}
	slog.Debug("written", "name", sheetName, "rows", n)
	return sheet.Close()
}
