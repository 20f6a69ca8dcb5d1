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

package sam

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// InputFile represents a SAM file for input.
//
// After the header has been parsed, an InputFile is a pargo
// pipeline.Source that produces batches of alignment lines as
// [][]byte.
type InputFile struct {
	rc          io.ReadCloser
	buf         *bufio.Reader
	headerLines int
	data        [][]byte
	err         error
}

// NewInputFile wraps a reader. Closing the InputFile closes rc
// unless it is os.Stdin.
func NewInputFile(rc io.ReadCloser) *InputFile {
	return &InputFile{rc: rc, buf: bufio.NewReader(rc)}
}

// Close closes the SAM input file.
func (f *InputFile) Close() error {
	if f.rc == os.Stdin {
		return nil
	}
	return f.rc.Close()
}

// ParseHeader fetches the header from a SAM file.
func (f *InputFile) ParseHeader() (*Header, error) {
	hdr, lines, err := ParseHeader(f.buf)
	f.headerLines = lines
	return hdr, err
}

// ParseAlignment parses one line from the alignment section.
func (f *InputFile) ParseAlignment(line []byte) (*Alignment, error) {
	return ParseAlignmentString(string(line))
}

// Err implements the method of the pipeline.Source interface.
func (f *InputFile) Err() error {
	return f.err
}

// Prepare implements the method of the pipeline.Source interface.
func (f *InputFile) Prepare(_ context.Context) int {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (f *InputFile) Fetch(size int) (fetched int) {
	if f.err != nil {
		return 0
	}
	records := make([][]byte, 0, size)
	for fetched < size {
		line, err := f.buf.ReadBytes('\n')
		if len(line) > 0 {
			records = append(records, trimLineEnd(line))
			fetched++
		}
		if err != nil {
			if err != io.EOF {
				f.err = err
			}
			break
		}
	}
	f.data = records
	return fetched
}

// Data implements the method of the pipeline.Source interface.
func (f *InputFile) Data() interface{} {
	return f.data
}

// OutputFile represents a SAM file for output.
type OutputFile struct {
	wc io.WriteCloser
	*bufio.Writer
}

// NewOutputFile wraps a writer. Closing the OutputFile flushes the
// buffered output and closes wc unless it is os.Stdout.
func NewOutputFile(wc io.WriteCloser) *OutputFile {
	return &OutputFile{wc: wc, Writer: bufio.NewWriter(wc)}
}

// FormatHeader writes the header to the SAM file.
func (f *OutputFile) FormatHeader(hdr *Header) error {
	return hdr.Format(f.Writer)
}

// FormatAlignment formats an alignment into a block of bytes for a SAM file.
func (f *OutputFile) FormatAlignment(aln *Alignment, out []byte) ([]byte, error) {
	return aln.Format(out)
}

// Close flushes and closes the SAM output file.
func (f *OutputFile) Close() error {
	err := f.Flush()
	if f.wc != os.Stdout {
		if nerr := f.wc.Close(); err == nil {
			err = nerr
		}
	}
	return err
}

// SAM file extensions.
const (
	SamExt  = ".sam"
	bamExt  = ".bam"
	cramExt = ".cram"
)

func checkExt(name string) error {
	switch ext := filepath.Ext(name); ext {
	case bamExt, cramExt:
		return fmt.Errorf("%v format not supported for %v, convert to SAM first", ext, name)
	default:
		return nil
	}
}

// Open a SAM file for input.
//
// If the name is "/dev/stdin", then the input is read from os.Stdin.
func Open(name string) (*InputFile, error) {
	if err := checkExt(name); err != nil {
		return nil, err
	}
	if name == "/dev/stdin" {
		return NewInputFile(os.Stdin), nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return NewInputFile(file), nil
}

// Create a SAM file for output.
//
// If the name is "/dev/stdout", then the output is written to
// os.Stdout.
func Create(name string) (*OutputFile, error) {
	if err := checkExt(name); err != nil {
		return nil, err
	}
	if name == "/dev/stdout" {
		return NewOutputFile(os.Stdout), nil
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return NewOutputFile(file), nil
}
