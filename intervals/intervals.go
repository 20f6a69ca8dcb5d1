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

package intervals

import (
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/elclip/bed"
)

// Interval is a generic struct with a start and an end position.
type Interval struct {
	Start, End int32
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type intervalSorter []Interval

func (s intervalSorter) SequentialSort(i, j int) { SortByStart(s[i:j]) }

func (s intervalSorter) NewTemp() psort.StableSorter { return make(intervalSorter, len(s)) }

func (s intervalSorter) Len() int { return len(s) }

func (s intervalSorter) Less(i, j int) bool { return s[i].Start < s[j].Start }

func (s intervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	src := source.(intervalSorter)
	return func(i, j, len int) {
		copy(s[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart is a parallel stable version of SortByStart.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(intervalSorter(intervals))
}

// Extend makes interval1 larger if it overlaps with interval2,
// by storing max(interval1.End, interval2.End) in interval1.End;
// otherwise, interval1 remains unchanged.
// Returns true if the two intervals overlap, false otherwise.
// interval2.Start >= interval1.Start must be true before
// calling Extend.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals into larger intervals.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func Flatten(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return intervals
	}
	i := 0
	for j := 1; j < len(intervals); j++ {
		if !intervals[i].Extend(intervals[j]) {
			i++
			intervals[i] = intervals[j]
		}
	}
	return intervals[:i+1]
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten is a parallel version of Flatten. Both halves are
// flattened independently, after which the first intervals of the
// right half are merged into the last interval of the left half
// where they overlap.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) / 2
	var left, right []Interval
	parallel.Do(
		func() { left = ParallelFlatten(intervals[:half]) },
		func() { right = ParallelFlatten(intervals[half:]) },
	)
	last := &left[len(left)-1]
	for len(right) > 0 && last.Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// FromBed returns the regions of a BED file as intervals, keyed and
// sorted per chromosome. Intervals keep the BED coordinates.
func FromBed(bed *bed.Bed) (intervals map[string][]Interval) {
	intervals = make(map[string][]Interval)
	for chrom, regions := range bed.RegionMap {
		result := make([]Interval, 0, len(regions))
		for _, region := range regions {
			result = append(result, Interval{region.Start, region.End})
		}
		ParallelSortByStart(result)
		intervals[*chrom] = result
	}
	return intervals
}
