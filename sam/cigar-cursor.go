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

// A CigarCursor walks a slice of CIGAR operations while keeping track
// of the reference position and the read offset that correspond to
// the next unconsumed unit.
//
// Operations are split on demand when a requested reference position
// falls in their middle, so walking a CIGAR string costs time
// proportional to the number of operations, not to the number of
// bases they cover.
type CigarCursor struct {
	cigar  []CigarOperation
	index  int
	offset int32

	// RefPos is the reference position of the next unconsumed unit.
	RefPos int32

	// ReadPos is the 0-based read offset of the next unconsumed unit.
	ReadPos int32
}

// NewCigarCursor returns a cursor positioned before the first
// operation of cigar, which is aligned at reference position refPos.
func NewCigarCursor(cigar []CigarOperation, refPos int32) *CigarCursor {
	return &CigarCursor{cigar: cigar, RefPos: refPos}
}

// Done returns true if all operations have been consumed.
func (c *CigarCursor) Done() bool {
	return c.index >= len(c.cigar)
}

// Current returns the unconsumed part of the current operation.
func (c *CigarCursor) Current() (CigarOperation, bool) {
	if c.Done() {
		return CigarOperation{}, false
	}
	op := c.cigar[c.index]
	op.Length -= c.offset
	return op, true
}

func (c *CigarCursor) consume(op CigarOperation) {
	consumes := cigarConsumes[op.Operation]
	c.RefPos += consumes.reference * op.Length
	c.ReadPos += consumes.read * op.Length
	c.offset += op.Length
	if c.offset == c.cigar[c.index].Length {
		c.index++
		c.offset = 0
	}
}

// AdvanceToRef consumes operations while RefPos < target.
//
// Operations that do not consume reference bases are consumed as a
// whole. A reference-consuming operation that extends past target is
// split: the prefix up to target is consumed, and the rest is
// returned as remainder, which has length 0 if no split occurred.
// Once RefPos == target nothing more is consumed, so operations that
// start exactly at target are left untouched.
//
// The consumed operations are returned in order, with a split prefix
// as the last entry.
func (c *CigarCursor) AdvanceToRef(target int32) (consumed []CigarOperation, remainder CigarOperation) {
	for c.RefPos < target {
		op, ok := c.Current()
		if !ok {
			break
		}
		if ConsumesReference(op.Operation) && c.RefPos+op.Length > target {
			prefix := CigarOperation{Length: target - c.RefPos, Operation: op.Operation}
			c.consume(prefix)
			consumed = append(consumed, prefix)
			remainder = CigarOperation{Length: op.Length - prefix.Length, Operation: op.Operation}
			return consumed, remainder
		}
		c.consume(op)
		consumed = append(consumed, op)
	}
	return consumed, remainder
}

// Rest returns the unconsumed part of the current operation followed
// by all operations after it, and moves the cursor to the end.
func (c *CigarCursor) Rest() (rest []CigarOperation) {
	for {
		op, ok := c.Current()
		if !ok {
			return rest
		}
		c.consume(op)
		rest = append(rest, op)
	}
}
