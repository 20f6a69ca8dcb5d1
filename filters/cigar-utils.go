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

package filters

import "github.com/exascience/elclip/sam"

// splitHardClips separates the leading and trailing hard clips of a
// CIGAR string from the operations between them.
func splitHardClips(cigar []sam.CigarOperation) (lead, core, trail []sam.CigarOperation) {
	start := 0
	for start < len(cigar) && cigar[start].Operation == sam.CigarHardClip {
		start++
	}
	end := len(cigar)
	for end > start && cigar[end-1].Operation == sam.CigarHardClip {
		end--
	}
	return cigar[:start], cigar[start:end], cigar[end:]
}

func sumLengths(cigar []sam.CigarOperation) (length int32) {
	for _, op := range cigar {
		length += op.Length
	}
	return
}

// appendClip appends a clip of the given kind, merging it with a
// preceding clip of the same kind. Zero-length clips are skipped.
func appendClip(cigar []sam.CigarOperation, kind byte, length int32) []sam.CigarOperation {
	if length == 0 {
		return cigar
	}
	if n := len(cigar); n > 0 && cigar[n-1].Operation == kind {
		cigar[n-1].Length += length
		return cigar
	}
	return append(cigar, sam.CigarOperation{Length: length, Operation: kind})
}

// A clipping is the intermediate result of trimming a CIGAR string:
// the operations kept inside the window, the reference position of
// the first kept operation, and the number of read bases to clip on
// either side.
type clipping struct {
	kept                []sam.CigarOperation
	refStart            int32
	leadClip, trailClip int32
}

// stripEdges removes the operations at both ends of the kept part
// that do not align read bases to reference bases. Read bases of
// removed operations are added to the clips, and reference bases
// removed at the start advance refStart. It returns false if no
// aligned operation is left.
func (c *clipping) stripEdges() bool {
	kept := c.kept
	start := 0
	for start < len(kept) && !sam.IsAligned(kept[start].Operation) {
		op := kept[start]
		if sam.ConsumesRead(op.Operation) {
			c.leadClip += op.Length
		}
		if sam.ConsumesReference(op.Operation) {
			c.refStart += op.Length
		}
		start++
	}
	if start == len(kept) {
		c.kept = nil
		return false
	}
	end := len(kept)
	for !sam.IsAligned(kept[end-1].Operation) {
		if op := kept[end-1]; sam.ConsumesRead(op.Operation) {
			c.trailClip += op.Length
		}
		end--
	}
	c.kept = kept[start:end]
	return true
}

// cigar assembles the clipped CIGAR string. Outer hard clips stay
// outermost.
func (c *clipping) cigar(lead, trail []sam.CigarOperation) []sam.CigarOperation {
	result := make([]sam.CigarOperation, 0, len(lead)+len(c.kept)+len(trail)+2)
	result = append(result, lead...)
	result = appendClip(result, sam.CigarSoftClip, c.leadClip)
	result = append(result, c.kept...)
	result = appendClip(result, sam.CigarSoftClip, c.trailClip)
	return append(result, trail...)
}
