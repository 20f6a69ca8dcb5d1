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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/exascience/elclip/utils"
)

// A Header holds the header section of a SAM file.
//
// Header lines are kept verbatim so that they can be written back
// unchanged. The @HD and @SQ lines are additionally parsed for
// lookups.
type Header struct {
	Lines []string
	HD    utils.StringMap
	SQ    []utils.StringMap
}

// NewHeader allocates and initializes an empty header.
func NewHeader() *Header { return &Header{} }

// SQLN returns the LN entry of an @SQ record.
func SQLN(record utils.StringMap) (int32, error) {
	ln, found := record["LN"]
	if !found {
		return 0x7FFFFFFF, errors.New("LN entry in a SQ header line missing")
	}
	val, err := strconv.ParseInt(ln, 10, 32)
	return int32(val), err
}

// ReferenceLength returns the length of the named reference sequence
// as recorded in the @SQ lines.
func (hdr *Header) ReferenceLength(name string) (int32, bool) {
	for _, sq := range hdr.SQ {
		if sq["SN"] == name {
			if ln, err := SQLN(sq); err == nil {
				return ln, true
			}
			return 0, false
		}
	}
	return 0, false
}

func parseHeaderFields(fields []string) (utils.StringMap, error) {
	record := make(utils.StringMap)
	for _, field := range fields {
		if len(field) < 3 || field[2] != ':' {
			return nil, fmt.Errorf("incorrectly formatted header field %v", field)
		}
		if !record.SetUniqueEntry(field[:2], field[3:]) {
			return nil, fmt.Errorf("duplicate field tag %v", field[:2])
		}
	}
	return record, nil
}

// AddLine appends a header line, which must start with '@' and must
// not contain the line terminator.
func (hdr *Header) AddLine(line string) error {
	if len(line) < 3 || line[0] != '@' {
		return malformed("header", fmt.Errorf("invalid header line %q", line))
	}
	fields := strings.Split(line, "\t")
	switch fields[0] {
	case "@HD":
		if len(hdr.Lines) > 0 {
			return malformed("@HD", errors.New("@HD line not in first line"))
		}
		record, err := parseHeaderFields(fields[1:])
		if err != nil {
			return malformed("@HD", err)
		}
		hdr.HD = record
	case "@SQ":
		record, err := parseHeaderFields(fields[1:])
		if err != nil {
			return malformed("@SQ", err)
		}
		hdr.SQ = append(hdr.SQ, record)
	}
	hdr.Lines = append(hdr.Lines, line)
	return nil
}

// An Alignment represents one alignment line of a SAM file.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	POS   int32
	MAPQ  byte
	CIGAR string
	RNEXT string
	PNEXT int32
	TLEN  int32
	SEQ   string
	QUAL  string
	TAGS  utils.SmallMap
	Temps utils.SmallMap

	// rawTags is the optional-field text as read, including the
	// leading tab. It is written back unchanged as long as the tags
	// are not changed through SetTag or DeleteTag.
	rawTags    string
	hasRawTags bool
}

// LINE is the temporary entry that records the input line of an
// alignment.
var LINE = utils.Intern("LINE")

// NewAlignment allocates and initializes an empty alignment.
func NewAlignment() *Alignment {
	return &Alignment{
		TAGS:  make(utils.SmallMap, 0, 16),
		Temps: make(utils.SmallMap, 0, 2),
	}
}

// Line returns the 1-based input line of the alignment, or 0 if it
// is not known.
func (aln *Alignment) Line() int {
	if line, ok := aln.Temps.Get(LINE); ok {
		return line.(int)
	}
	return 0
}

// SetLine records the 1-based input line of the alignment.
func (aln *Alignment) SetLine(line int) {
	aln.Temps.Set(LINE, line)
}

// Tag returns the value of an optional field.
func (aln *Alignment) Tag(tag string) (interface{}, bool) {
	return aln.TAGS.Get(utils.Intern(tag))
}

// SetTag sets the value of an optional field.
func (aln *Alignment) SetTag(tag string, value interface{}) {
	aln.hasRawTags = false
	aln.TAGS.Set(utils.Intern(tag), value)
}

// DeleteTag removes an optional field.
func (aln *Alignment) DeleteTag(tag string) {
	aln.hasRawTags = false
	aln.TAGS, _ = aln.TAGS.Delete(utils.Intern(tag))
}

// Values for the FLAG field.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

// IsUnmapped checks the Unmapped flag.
func (aln *Alignment) IsUnmapped() bool { return (aln.FLAG & Unmapped) != 0 }

// IsUnmappedStrict also treats alignments without a position,
// reference name or CIGAR string as unmapped.
func (aln *Alignment) IsUnmappedStrict() bool {
	return aln.IsUnmapped() || (aln.POS == 0) || (aln.RNAME == "*") || (aln.CIGAR == "*")
}

// End returns the last reference position covered by the alignment.
func (aln *Alignment) End() (int32, error) {
	cigar, err := ScanCigarString(aln.CIGAR)
	if err != nil {
		return 0, err
	}
	return aln.POS + ReferenceLength(cigar) - 1, nil
}
