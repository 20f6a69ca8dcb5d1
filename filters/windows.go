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
	"log"
	"sort"

	"github.com/exascience/elclip/bed"
	"github.com/exascience/elclip/intervals"
	"github.com/exascience/elclip/sam"
)

// Windows assigns a trimming window to each reference sequence.
// A reference sequence either has its own window, or uses the
// fallback window if there is one.
type Windows struct {
	byContig map[string]Window
	fallback *Window
}

// FixedWindow returns Windows that use the same window for every
// reference sequence.
func FixedWindow(window Window) *Windows {
	return &Windows{fallback: &window}
}

// ContigWindows returns Windows with one window per reference
// sequence. Alignments on other reference sequences have no window.
func ContigWindows(windows map[string]Window) *Windows {
	byContig := make(map[string]Window, len(windows))
	for contig, window := range windows {
		byContig[contig] = window
	}
	return &Windows{byContig: byContig}
}

// WindowsFromBed converts BED regions into one window per
// chromosome. BED coordinates are 0-based and half-open, windows are
// 1-based and half-open. Overlapping or adjacent regions on the same
// chromosome are merged; a chromosome whose regions remain disjoint
// after merging cannot be represented by a single window and yields
// a *ConfigError.
func WindowsFromBed(b *bed.Bed) (*Windows, error) {
	windows := make(map[string]Window)
	for contig, ivs := range intervals.FromBed(b) {
		ivs = intervals.ParallelFlatten(ivs)
		if len(ivs) != 1 {
			return nil, &ConfigError{
				Kind:   ErrInvalidWindow,
				Detail: fmt.Sprintf("BED regions for %v do not form one contiguous window: %v", contig, ivs),
			}
		}
		window, err := NewWindow(ivs[0].Start+1, ivs[0].End+1)
		if err != nil {
			return nil, &ConfigError{
				Kind:   ErrInvalidWindow,
				Detail: fmt.Sprintf("empty BED region for %v", contig),
			}
		}
		windows[contig] = window
	}
	if len(windows) == 0 {
		return nil, &ConfigError{Kind: ErrInvalidWindow, Detail: "no regions in BED file"}
	}
	return &Windows{byContig: windows}, nil
}

// Lookup returns the window for the given reference sequence.
func (ws *Windows) Lookup(rname string) (Window, bool) {
	if window, ok := ws.byContig[rname]; ok {
		return window, true
	}
	if ws.fallback != nil {
		return *ws.fallback, true
	}
	return Window{}, false
}

// Contigs returns the names of the reference sequences with their
// own window, sorted.
func (ws *Windows) Contigs() []string {
	contigs := make([]string, 0, len(ws.byContig))
	for contig := range ws.byContig {
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)
	return contigs
}

func clampToReference(window Window, length int32) (Window, bool) {
	if window.To > length+1 {
		window.To = length + 1
		return window, true
	}
	return window, false
}

// ClampToReferences returns Windows whose windows do not extend past
// the ends of the reference sequences recorded in the header. A
// window that starts past the end of its reference sequence becomes
// empty, which excludes all alignments on it.
func (ws *Windows) ClampToReferences(header *sam.Header) *Windows {
	result := &Windows{byContig: make(map[string]Window), fallback: ws.fallback}
	for _, sq := range header.SQ {
		length, err := sam.SQLN(sq)
		if err != nil {
			continue
		}
		name := sq["SN"]
		window, ok := ws.Lookup(name)
		if !ok {
			continue
		}
		if clamped, changed := clampToReference(window, length); changed {
			log.Printf("Window %v extends past the end of %v (length %v), clamped to %v.\n", window, name, length, clamped)
			window = clamped
		}
		result.byContig[name] = window
	}
	for contig, window := range ws.byContig {
		if _, ok := result.byContig[contig]; !ok {
			result.byContig[contig] = window
		}
	}
	return result
}
