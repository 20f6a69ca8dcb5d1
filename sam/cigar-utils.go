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
	"fmt"
	"strconv"
	"sync"
)

// CIGAR operation kinds.
const (
	CigarMatch     byte = 'M'
	CigarInsertion byte = 'I'
	CigarDeletion  byte = 'D'
	CigarSkipped   byte = 'N'
	CigarSoftClip  byte = 'S'
	CigarHardClip  byte = 'H'
	CigarPadding   byte = 'P'
	CigarEqual     byte = '='
	CigarMismatch  byte = 'X'
)

// CigarOperations lists all valid CIGAR operation kinds.
const CigarOperations = "MIDNSHP=X"

// A CigarOperation is one <length><kind> element of a CIGAR string.
type CigarOperation struct {
	Length    int32
	Operation byte
}

// cigarConsumer describes how a CIGAR operation consumes read and
// reference bases.
type cigarConsumer struct {
	read, reference int32
}

var cigarConsumes = [256]cigarConsumer{
	CigarMatch:     {read: 1, reference: 1},
	CigarInsertion: {read: 1},
	CigarDeletion:  {reference: 1},
	CigarSkipped:   {reference: 1},
	CigarSoftClip:  {read: 1},
	CigarHardClip:  {},
	CigarPadding:   {},
	CigarEqual:     {read: 1, reference: 1},
	CigarMismatch:  {read: 1, reference: 1},
}

var cigarOperationsTable [256]bool

func init() {
	for _, c := range []byte(CigarOperations) {
		cigarOperationsTable[c] = true
	}
}

// ConsumesRead returns true if the given CIGAR operation consumes read
// bases.
func ConsumesRead(operation byte) bool {
	return cigarConsumes[operation].read != 0
}

// ConsumesReference returns true if the given CIGAR operation
// consumes reference bases.
func ConsumesReference(operation byte) bool {
	return cigarConsumes[operation].reference != 0
}

// IsAligned returns true for operations that align a read base to a
// reference base (M, = and X).
func IsAligned(operation byte) bool {
	return ConsumesRead(operation) && ConsumesReference(operation)
}

// ReadLength sums the lengths of all CIGAR operations that consume
// read bases.
func ReadLength(cigar []CigarOperation) int32 {
	var length int32
	for _, op := range cigar {
		length += cigarConsumes[op.Operation].read * op.Length
	}
	return length
}

// ReferenceLength sums the lengths of all CIGAR operations that
// consume reference bases.
func ReferenceLength(cigar []CigarOperation) int32 {
	var length int32
	for _, op := range cigar {
		length += cigarConsumes[op.Operation].reference * op.Length
	}
	return length
}

// checkClips verifies that hard clips only occur as the outermost
// operations, and soft clips only between a hard clip or the end of
// the CIGAR and the first or last other operation.
func checkClips(cigar []CigarOperation) error {
	lo, hi := 0, len(cigar)
	if lo < hi && cigar[lo].Operation == CigarHardClip {
		lo++
	}
	for lo < hi && cigar[lo].Operation == CigarSoftClip {
		lo++
	}
	if lo < hi && cigar[hi-1].Operation == CigarHardClip {
		hi--
	}
	for lo < hi && cigar[hi-1].Operation == CigarSoftClip {
		hi--
	}
	for i := lo; i < hi; i++ {
		switch op := cigar[i].Operation; op {
		case CigarSoftClip, CigarHardClip:
			return fmt.Errorf("clip %v%c at operation %v is not at an end of the CIGAR string", cigar[i].Length, op, i+1)
		}
	}
	return nil
}

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

func newCigarOperation(cigar string, i int) (op CigarOperation, j int, err error) {
	for j = i; j < len(cigar) && isDigit(cigar[j]); j++ {
	}
	if j == i {
		return op, j, fmt.Errorf("missing length before position %v", i)
	}
	if j == len(cigar) {
		return op, j, fmt.Errorf("missing operation after length %v", cigar[i:j])
	}
	length, err := strconv.ParseInt(cigar[i:j], 10, 32)
	if err != nil {
		return op, j, err
	}
	if length == 0 {
		return op, j, fmt.Errorf("zero-length operation %v", cigar[i:j+1])
	}
	operation := cigar[j]
	if !cigarOperationsTable[operation] {
		return op, j, fmt.Errorf("invalid CIGAR operation %q", operation)
	}
	return CigarOperation{int32(length), operation}, j + 1, nil
}

var (
	cigarSliceCache      = map[string][]CigarOperation{"*": {}}
	cigarSliceCacheMutex = sync.RWMutex{}
)

const maxCachedCigarLength = 16

func slowScanCigarString(cigar string) (slice []CigarOperation, err error) {
	if cigar == "" {
		return nil, fmt.Errorf("empty CIGAR string")
	}
	for i := 0; i < len(cigar); {
		op, j, err := newCigarOperation(cigar, i)
		if err != nil {
			return nil, fmt.Errorf("%v, while scanning CIGAR string %v", err, cigar)
		}
		slice = append(slice, op)
		i = j
	}
	if len(cigar) > maxCachedCigarLength {
		return slice, nil
	}
	cigarSliceCacheMutex.Lock()
	if value, found := cigarSliceCache[cigar]; found {
		slice = value
	} else {
		cigarSliceCache[cigar] = slice
	}
	cigarSliceCacheMutex.Unlock()
	return slice, nil
}

// ScanCigarString parses a CIGAR string. The string "*" yields an
// empty slice.
//
// Short CIGAR strings are cached, so the result must be treated as
// read-only.
func ScanCigarString(cigar string) ([]CigarOperation, error) {
	cigarSliceCacheMutex.RLock()
	value, found := cigarSliceCache[cigar]
	cigarSliceCacheMutex.RUnlock()
	if found {
		return value, nil
	}
	return slowScanCigarString(cigar)
}

// AppendCigar appends the textual form of the given CIGAR operations
// to out. An empty slice is formatted as "*".
func AppendCigar(out []byte, cigar []CigarOperation) []byte {
	if len(cigar) == 0 {
		return append(out, '*')
	}
	for _, op := range cigar {
		out = append(strconv.AppendInt(out, int64(op.Length), 10), op.Operation)
	}
	return out
}

// FormatCigar returns the textual form of the given CIGAR operations.
func FormatCigar(cigar []CigarOperation) string {
	return string(AppendCigar(make([]byte, 0, 4*len(cigar)), cigar))
}
