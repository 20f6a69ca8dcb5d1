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

package bed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elclip/utils"
)

// ParseBed parses BED data. Comment, track and browser lines are
// skipped. Only the chrom, chromStart, chromEnd and name fields are
// interpreted.
func ParseBed(r io.Reader) (*Bed, error) {
	bed := NewBed()
	scanner := bufio.NewScanner(r)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			continue
		}
		data := strings.Split(line, "\t")
		if len(data) < 3 {
			return nil, fmt.Errorf("line %v: BED line with fewer than 3 fields", lineNumber)
		}
		start, err := strconv.ParseInt(data[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %v: invalid chromStart: %v", lineNumber, err)
		}
		end, err := strconv.ParseInt(data[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %v: invalid chromEnd: %v", lineNumber, err)
		}
		if start < 0 || end < start {
			return nil, fmt.Errorf("line %v: invalid region %v-%v", lineNumber, start, end)
		}
		region := &Region{
			Chrom: utils.Intern(data[0]),
			Start: int32(start),
			End:   int32(end),
		}
		if len(data) > 3 {
			region.Name = data[3]
		}
		bed.AddRegion(region)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	bed.sortRegions()
	return bed, nil
}

// ParseBedFile parses a BED file.
func ParseBedFile(filename string) (bed *Bed, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	bed, err = ParseBed(file)
	if err != nil {
		return nil, fmt.Errorf("%v, while parsing BED file %v", err, filename)
	}
	return bed, nil
}
