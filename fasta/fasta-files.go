// elClip: a tool for trimming SAM alignments to reference windows.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elclip/blob/master/LICENSE.txt>.

package fasta

import (
	"bufio"
	"io"
	"os"
)

// DefaultLineWidth is the number of bases per sequence line.
const DefaultLineWidth = 60

// A Writer writes FASTA records.
type Writer struct {
	wc        io.WriteCloser
	out       *bufio.Writer
	lineWidth int
}

// NewWriter returns a Writer that wraps sequence lines after
// lineWidth bases, or never if lineWidth <= 0. Closing the Writer
// closes wc unless it is os.Stdout.
func NewWriter(wc io.WriteCloser, lineWidth int) *Writer {
	return &Writer{wc: wc, out: bufio.NewWriter(wc), lineWidth: lineWidth}
}

// Create a FASTA file for output.
//
// If the name is "/dev/stdout", then the output is written to
// os.Stdout.
func Create(name string) (*Writer, error) {
	if name == "/dev/stdout" {
		return NewWriter(os.Stdout, DefaultLineWidth), nil
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return NewWriter(file, DefaultLineWidth), nil
}

// Write writes one record with the given identifier and sequence.
func (w *Writer) Write(id, seq string) error {
	w.out.WriteByte('>')
	w.out.WriteString(id)
	w.out.WriteByte('\n')
	if w.lineWidth <= 0 {
		w.out.WriteString(seq)
		return w.out.WriteByte('\n')
	}
	for len(seq) > w.lineWidth {
		w.out.WriteString(seq[:w.lineWidth])
		w.out.WriteByte('\n')
		seq = seq[w.lineWidth:]
	}
	w.out.WriteString(seq)
	return w.out.WriteByte('\n')
}

// Close flushes and closes the FASTA output.
func (w *Writer) Close() error {
	err := w.out.Flush()
	if w.wc != os.Stdout {
		if nerr := w.wc.Close(); err == nil {
			err = nerr
		}
	}
	return err
}
