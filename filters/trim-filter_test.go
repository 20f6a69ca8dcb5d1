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
	"bytes"
	"errors"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/exascience/elclip/fasta"
	"github.com/exascience/elclip/sam"
)

type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

const trimHeader = "@HD\tVN:1.6\tSO:coordinate\n@SQ\tSN:chr1\tLN:1000\n@SQ\tSN:chr2\tLN:130\n@PG\tID:bwa\tPN:bwa\n"

const trimInput = trimHeader +
	"a\t0\tchr1\t100\t60\t50M\t*\t0\t0\tAAAAAAAAAACCCCCCCCCCGGGGGGGGGGTTTTTTTTTTAAAAAAAAAA\t*\tNM:i:0\tMD:Z:50\n" +
	"b\t0\tchr1\t500\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n" +
	"c\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\t*\n" +
	"d\t16\tchr2\t100\t60\t50M\t*\t0\t0\tAAAAAAAAAACCCCCCCCCCGGGGGGGGGGTTTTTTTTTTAAAAAAAAAA\t*\n" +
	"e\t0\tchr3\t100\t60\t5M\t*\t0\t0\tACGTA\t*\n"

const trimOutput = trimHeader +
	"a\t0\tchr1\t120\t60\t20S20M10S\t*\t0\t0\tAAAAAAAAAACCCCCCCCCCGGGGGGGGGGTTTTTTTTTTAAAAAAAAAA\t*\tNM:i:0\tMD:Z:50\n" +
	"b\t0\tchr1\t500\t60\t10S\t*\t0\t0\tACGTACGTAC\t*\n" +
	"c\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\t*\n" +
	"d\t16\tchr2\t120\t60\t20S11M19S\t*\t0\t0\tAAAAAAAAAACCCCCCCCCCGGGGGGGGGGTTTTTTTTTTAAAAAAAAAA\t*\n" +
	"e\t0\tchr3\t100\t60\t5M\t*\t0\t0\tACGTA\t*\n"

const trimFasta = ">a\nGGGGGGGGGG\nTTTTTTTTTT\n>d\nGGGGGGGGGG\nT\n>e\nACGTA\n"

func TestTrimToWindowsPipeline(t *testing.T) {
	var samBuf, fastaBuf bytes.Buffer
	output := sam.NewOutputFile(nopWriteCloser{&samBuf})
	fastaOutput := fasta.NewWriter(nopWriteCloser{&fastaBuf}, 10)
	input := sam.NewInputFile(ioutil.NopCloser(strings.NewReader(trimInput)))
	summary := NewSummary()
	windows := ContigWindows(map[string]Window{
		"chr1": {120, 140},
		"chr2": {120, 500},
		"chr3": {1, 1000},
	})
	err := input.RunPipeline(
		sam.Outputs(output, AlignedSequencesTo(fastaOutput)),
		[]sam.Filter{TrimToWindows(windows, SoftClip, summary)},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := output.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fastaOutput.Close(); err != nil {
		t.Fatal(err)
	}
	if samBuf.String() != trimOutput {
		t.Errorf("SAM output =\n%v\nwant\n%v", samBuf.String(), trimOutput)
	}
	if fastaBuf.String() != trimFasta {
		t.Errorf("FASTA output =\n%q\nwant\n%q", fastaBuf.String(), trimFasta)
	}
	if summary.Count(Retained) != 3 || summary.Count(Excluded) != 1 || summary.Count(Unmapped) != 1 {
		t.Errorf("summary counts %v %v %v", summary.Count(Retained), summary.Count(Excluded), summary.Count(Unmapped))
	}
	if lines := summary.ExcludedLines(); len(lines) != 1 || lines[0] != 6 {
		t.Errorf("ExcludedLines = %v", lines)
	}
}

func TestTrimToWindowsWithoutWindow(t *testing.T) {
	result := sam.NewSam()
	input := sam.NewInputFile(ioutil.NopCloser(strings.NewReader(trimInput)))
	windows := ContigWindows(map[string]Window{"chr1": {1, 1000}})
	if err := input.RunPipeline(result, []sam.Filter{TrimToWindows(windows, HardClip, nil)}); err != nil {
		t.Fatal(err)
	}
	if len(result.Alignments) != 5 {
		t.Fatalf("%v alignments, want 5", len(result.Alignments))
	}
	if d := result.Alignments[3]; d.CIGAR != "50H" || d.SEQ != "*" || d.POS != 100 {
		t.Errorf("alignment on a contig without window: %v %v %v", d.POS, d.CIGAR, d.SEQ)
	}
	if a := result.Alignments[0]; a.CIGAR != "50M" {
		t.Errorf("alignment inside its window changed to %v", a.CIGAR)
	}
}

func TestTrimToWindowsParseError(t *testing.T) {
	text := trimHeader +
		"a\t0\tchr1\t100\t60\t50M\t*\t0\t0\tACGT\t*\n"
	var samBuf bytes.Buffer
	output := sam.NewOutputFile(nopWriteCloser{&samBuf})
	input := sam.NewInputFile(ioutil.NopCloser(strings.NewReader(text)))
	err := input.RunPipeline(output, []sam.Filter{TrimToWindows(FixedWindow(Window{1, 10}), SoftClip, nil)})
	if !errors.Is(err, sam.ErrInconsistentLength) {
		t.Fatalf("error %v, want %v", err, sam.ErrInconsistentLength)
	}
	var perr *sam.ParseError
	if !errors.As(err, &perr) || perr.Line != 5 {
		t.Errorf("error %v does not report line 5", err)
	}
	if err := output.Close(); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(samBuf.String(), "\na\t") {
		t.Error("alignment written despite parse error")
	}
}
