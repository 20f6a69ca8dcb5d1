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
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/willf/bitset"
)

// A Summary counts the outcomes of trimming a stream of alignments,
// and records the input lines of the excluded alignments.
//
// It is safe for concurrent use by the filters of a pipeline.
type Summary struct {
	RunID uuid.UUID

	mutex         sync.Mutex
	counts        [3]int
	excludedLines *bitset.BitSet
}

// NewSummary returns an empty summary with a fresh run id.
func NewSummary() *Summary {
	return &Summary{
		RunID:         uuid.New(),
		excludedLines: bitset.New(0),
	}
}

// Add records one outcome. Line is the 1-based input line of the
// alignment, or 0 if unknown.
func (s *Summary) Add(outcome Outcome, line int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counts[outcome]++
	if outcome == Excluded && line > 0 {
		s.excludedLines.Set(uint(line))
	}
}

// Count returns how often the given outcome was recorded.
func (s *Summary) Count(outcome Outcome) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.counts[outcome]
}

// Total returns the number of recorded outcomes.
func (s *Summary) Total() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.counts[Retained] + s.counts[Excluded] + s.counts[Unmapped]
}

// ExcludedLines returns the input lines of the excluded alignments
// in increasing order.
func (s *Summary) ExcludedLines() []int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	lines := make([]int, 0, s.excludedLines.Count())
	for i, ok := s.excludedLines.NextSet(0); ok; i, ok = s.excludedLines.NextSet(i + 1) {
		lines = append(lines, int(i))
	}
	return lines
}

// Report writes the counts, followed by the excluded input lines
// compressed into ranges if there are at most maxLines of them.
func (s *Summary) Report(out io.Writer, maxLines int) error {
	if _, err := fmt.Fprintf(out, "Run %v: %v alignments, %v retained, %v excluded, %v unmapped.\n",
		s.RunID, s.Total(), s.Count(Retained), s.Count(Excluded), s.Count(Unmapped)); err != nil {
		return err
	}
	lines := s.ExcludedLines()
	if len(lines) == 0 || len(lines) > maxLines {
		return nil
	}
	_, err := fmt.Fprintf(out, "Excluded alignments at lines %v.\n", formatRanges(lines))
	return err
}

func formatRanges(lines []int) string {
	var result []byte
	for i := 0; i < len(lines); {
		j := i
		for j+1 < len(lines) && lines[j+1] == lines[j]+1 {
			j++
		}
		if len(result) > 0 {
			result = append(result, ", "...)
		}
		if i == j {
			result = append(result, fmt.Sprint(lines[i])...)
		} else {
			result = append(result, fmt.Sprintf("%v-%v", lines[i], lines[j])...)
		}
		i = j + 1
	}
	return string(result)
}
