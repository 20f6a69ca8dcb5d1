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

import (
	"log"

	"github.com/exascience/elclip/sam"
)

// TrimToWindows returns a filter that trims every alignment to the
// window of its reference sequence. Windows are first clamped to the
// reference lengths in the header. Alignments on a reference
// sequence without a window are excluded. No alignment is removed
// from the stream.
//
// If summary is not nil, each outcome is recorded in it.
func TrimToWindows(windows *Windows, mode ClipMode, summary *Summary) sam.Filter {
	return func(header *sam.Header) sam.AlignmentFilter {
		windows := windows.ClampToReferences(header)
		return func(aln *sam.Alignment) bool {
			var outcome Outcome
			var err error
			if window, ok := windows.Lookup(aln.RNAME); ok {
				outcome, err = Trim(aln, window, mode)
			} else {
				outcome, err = Exclude(aln, mode)
			}
			if err != nil {
				log.Panic(err, ", while trimming SAM alignment ", aln.QNAME, " at line ", aln.Line())
			}
			if summary != nil {
				summary.Add(outcome, aln.Line())
			}
			return true
		}
	}
}
