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
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/exascience/elclip/sam"
)

func newTestAlignment(t *testing.T, pos int32, cigar string) *sam.Alignment {
	ops, err := sam.ScanCigarString(cigar)
	if err != nil {
		t.Fatal(err)
	}
	n := int(sam.ReadLength(ops))
	line := fmt.Sprintf("r\t0\tchr1\t%v\t60\t%v\t*\t0\t0\t%v\t%v\tNM:i:0",
		pos, cigar, strings.Repeat("A", n), strings.Repeat("I", n))
	aln, err := sam.ParseAlignmentString(line)
	if err != nil {
		t.Fatal(err)
	}
	return aln
}

func mustWindow(t *testing.T, from, to int32) Window {
	window, err := NewWindow(from, to)
	if err != nil {
		t.Fatal(err)
	}
	return window
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name          string
		pos           int32
		cigar         string
		from, to      int32
		outcome       Outcome
		expectedPos   int32
		expectedCigar string
	}{
		// window inside a single match
		{"inside match", 100, "50M", 120, 140, Retained, 120, "20S20M10S"},
		// window left of the alignment
		{"window left", 100, "10S40M10S", 10, 50, Excluded, 100, "60S"},
		// window right of the alignment
		{"window right", 100, "10S40M10S", 140, 200, Excluded, 100, "60S"},
		// window starts on a deletion
		{"starts on deletion", 100, "20M5D20M", 120, 200, Retained, 125, "20S20M"},
		// window ends on a deletion
		{"ends on deletion", 100, "20M5D20M", 100, 120, Retained, 100, "20M20S"},
		// window ends inside a deletion
		{"ends inside deletion", 100, "20M5D20M", 110, 122, Retained, 110, "10S10M20S"},
		// window equal to the span
		{"equal span", 100, "10S40M10S", 100, 140, Retained, 100, "10S40M10S"},
		// window equal to the span, redundant clips
		{"equal span merged clips", 100, "2S3S40M5S", 100, 140, Retained, 100, "5S40M5S"},
		// window larger than the span
		{"wide", 100, "5S40M", 1, 1000, Retained, 100, "5S40M"},
		// insertion next to the new leading clip
		{"insertion lead", 100, "10M5I10M", 110, 120, Retained, 110, "15S10M"},
		// insertion next to the new trailing clip
		{"insertion trail", 100, "10M5I10M", 100, 110, Retained, 100, "10M15S"},
		// interior operations are kept
		{"interior", 100, "10M2D10M", 105, 118, Retained, 105, "5S5M2D6M4S"},
		// interior insertion is kept
		{"interior insertion", 100, "10M3I10M", 105, 115, Retained, 105, "5S5M3I5M5S"},
		// skipped region at the start of the window
		{"skip", 100, "10M100N10M", 150, 300, Retained, 210, "10S10M"},
		// window ends in a skipped region
		{"skip end", 100, "10M100N10M", 105, 150, Retained, 105, "5S5M10S"},
		// window completely within a skipped region
		{"skip only", 100, "10M100N10M", 150, 160, Excluded, 100, "20S"},
		// hard clips stay outermost
		{"hard clips", 100, "5H10S40M10S5H", 110, 130, Retained, 110, "5H20S20M20S5H"},
		// excluded with hard clips
		{"hard clips excluded", 100, "5H10S40M10S5H", 500, 600, Excluded, 100, "5H60S5H"},
		// = and X are aligned operations
		{"eq diff", 100, "10=2X10=", 109, 113, Retained, 109, "9S1=2X1=9S"},
		// padding at the boundary is dropped
		{"padding", 100, "10M2P10M", 110, 200, Retained, 110, "10S10M"},
		// leading deletion is dropped
		{"leading deletion", 100, "5D20M", 1, 1000, Retained, 105, "20M"},
		// leading insertion becomes a clip
		{"leading insertion", 100, "3I20M", 1, 1000, Retained, 100, "3S20M"},
		// trailing skip is dropped
		{"trailing skip", 100, "20M4N", 1, 1000, Retained, 100, "20M"},
		// one base window
		{"one base", 100, "50M", 130, 131, Retained, 130, "30S1M19S"},
	}
	for _, test := range tests {
		aln := newTestAlignment(t, test.pos, test.cigar)
		seq, qual := aln.SEQ, aln.QUAL
		outcome, err := Trim(aln, mustWindow(t, test.from, test.to), SoftClip)
		if err != nil {
			t.Errorf("%v: %v", test.name, err)
			continue
		}
		if outcome != test.outcome || aln.POS != test.expectedPos || aln.CIGAR != test.expectedCigar {
			t.Errorf("%v: got %v %v %v, want %v %v %v", test.name,
				outcome, aln.POS, aln.CIGAR, test.outcome, test.expectedPos, test.expectedCigar)
		}
		if aln.SEQ != seq || aln.QUAL != qual {
			t.Errorf("%v: SEQ or QUAL changed", test.name)
		}
		if nm, _ := aln.Tag("NM"); nm != int32(0) {
			t.Errorf("%v: NM changed to %v", test.name, nm)
		}
	}
}

func TestTrimUnmapped(t *testing.T) {
	for _, line := range []string{
		"r\t4\tchr1\t100\t0\t4M\t*\t0\t0\tACGT\tIIII",
		"r\t0\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII",
		"r\t0\tchr1\t100\t0\t*\t*\t0\t0\tACGT\tIIII",
	} {
		aln, err := sam.ParseAlignmentString(line)
		if err != nil {
			t.Fatal(err)
		}
		for _, mode := range []ClipMode{SoftClip, HardClip} {
			outcome, err := Trim(aln, Window{500, 600}, mode)
			if err != nil || outcome != Unmapped {
				t.Errorf("Trim(%q) = %v, %v", line, outcome, err)
			}
			out, err := aln.Format(nil)
			if err != nil {
				t.Fatal(err)
			}
			if string(out) != line+"\n" {
				t.Errorf("unmapped alignment changed to %q", out)
			}
		}
	}
}

func TestTrimHardClip(t *testing.T) {
	aln := newTestAlignment(t, 100, "5H10S40M")
	outcome, err := Trim(aln, mustWindow(t, 10, 20), HardClip)
	if err != nil || outcome != Excluded {
		t.Fatalf("Trim = %v, %v", outcome, err)
	}
	if aln.CIGAR != "55H" || aln.SEQ != "*" || aln.QUAL != "*" || aln.POS != 100 {
		t.Errorf("hard clipped alignment: %v %v %v %v", aln.POS, aln.CIGAR, aln.SEQ, aln.QUAL)
	}
	if err := aln.Validate(); err != nil {
		t.Errorf("hard clipped alignment is invalid: %v", err)
	}
	outcome, err = Trim(aln, mustWindow(t, 10, 20), HardClip)
	if err != nil || outcome != Excluded || aln.CIGAR != "55H" {
		t.Errorf("second Trim = %v, %v, %v", outcome, err, aln.CIGAR)
	}

	retained := newTestAlignment(t, 100, "50M")
	if outcome, err := Trim(retained, mustWindow(t, 110, 120), HardClip); err != nil || outcome != Retained || retained.CIGAR != "10S10M30S" {
		t.Errorf("hard clip mode changed a retained alignment: %v, %v, %v", outcome, err, retained.CIGAR)
	}
}

func TestNewWindow(t *testing.T) {
	for _, w := range [][2]int32{{10, 10}, {20, 10}, {0, 10}, {-5, 10}} {
		_, err := NewWindow(w[0], w[1])
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("NewWindow(%v, %v) = %v", w[0], w[1], err)
		}
		var cerr *ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("NewWindow(%v, %v) did not return a *ConfigError", w[0], w[1])
		}
	}
	if w, err := NewWindow(1, 2); err != nil || w != (Window{1, 2}) {
		t.Errorf("NewWindow(1, 2) = %v, %v", w, err)
	}
}

func TestParseClipMode(t *testing.T) {
	if mode, err := ParseClipMode("Hard"); err != nil || mode != HardClip {
		t.Errorf("ParseClipMode(Hard) = %v, %v", mode, err)
	}
	if mode, err := ParseClipMode("soft"); err != nil || mode != SoftClip {
		t.Errorf("ParseClipMode(soft) = %v, %v", mode, err)
	}
	if _, err := ParseClipMode("medium"); err == nil {
		t.Error("ParseClipMode(medium) succeeded")
	}
}

func TestAlignedSequence(t *testing.T) {
	aln, err := sam.ParseAlignmentString("r\t0\tchr1\t100\t60\t2H3S4M1I2M2S\t*\t0\t0\tCCCACGTTGGAA\tIIIIIIIIIIII")
	if err != nil {
		t.Fatal(err)
	}
	if seq, ok := AlignedSequence(aln); !ok || seq != "ACGTTGG" {
		t.Errorf("AlignedSequence = %v, %v", seq, ok)
	}
	if _, err := Trim(aln, mustWindow(t, 102, 200), SoftClip); err != nil {
		t.Fatal(err)
	}
	if seq, ok := AlignedSequence(aln); !ok || seq != "GTTGG" {
		t.Errorf("AlignedSequence after Trim = %v, %v (CIGAR %v)", seq, ok, aln.CIGAR)
	}
	if _, err := Trim(aln, mustWindow(t, 1, 50), SoftClip); err != nil {
		t.Fatal(err)
	}
	if seq, ok := AlignedSequence(aln); ok {
		t.Errorf("AlignedSequence of an excluded alignment = %v", seq)
	}
}

// randomCigar returns a valid CIGAR string that starts and ends with
// an aligned operation, optionally surrounded by clips.
func randomCigar(rnd *rand.Rand) string {
	var buf strings.Builder
	if rnd.Intn(4) == 0 {
		fmt.Fprintf(&buf, "%vH", 1+rnd.Intn(10))
	}
	if rnd.Intn(2) == 0 {
		fmt.Fprintf(&buf, "%vS", 1+rnd.Intn(10))
	}
	aligned := "M=X"
	interior := "MIDN=XP"
	edge := "IDNP"
	if rnd.Intn(3) == 0 {
		fmt.Fprintf(&buf, "%v%c", 1+rnd.Intn(20), edge[rnd.Intn(len(edge))])
	}
	fmt.Fprintf(&buf, "%v%c", 1+rnd.Intn(20), aligned[rnd.Intn(len(aligned))])
	for i := rnd.Intn(6); i > 0; i-- {
		fmt.Fprintf(&buf, "%v%c", 1+rnd.Intn(20), interior[rnd.Intn(len(interior))])
		fmt.Fprintf(&buf, "%v%c", 1+rnd.Intn(20), aligned[rnd.Intn(len(aligned))])
	}
	if rnd.Intn(3) == 0 {
		fmt.Fprintf(&buf, "%v%c", 1+rnd.Intn(20), edge[rnd.Intn(len(edge))])
	}
	if rnd.Intn(2) == 0 {
		fmt.Fprintf(&buf, "%vS", 1+rnd.Intn(10))
	}
	if rnd.Intn(4) == 0 {
		fmt.Fprintf(&buf, "%vH", 1+rnd.Intn(10))
	}
	return buf.String()
}

func randomWindow(rnd *rand.Rand, pos, refLength int32) Window {
	from := pos - 20 + rnd.Int31n(refLength+40)
	if from < 1 {
		from = 1
	}
	return Window{From: from, To: from + 1 + rnd.Int31n(60)}
}

func trimCopy(t *testing.T, aln *sam.Alignment, window Window) (sam.Alignment, Outcome) {
	result := *aln
	outcome, err := Trim(&result, window, SoftClip)
	if err != nil {
		t.Fatalf("Trim(%v %v, %v) failed: %v", aln.POS, aln.CIGAR, window, err)
	}
	return result, outcome
}

func checkSpan(t *testing.T, aln *sam.Alignment, window Window, original string) {
	cigar, err := sam.ScanCigarString(aln.CIGAR)
	if err != nil {
		t.Fatal(err)
	}
	pos := aln.POS
	first := true
	for _, op := range cigar {
		switch {
		case op.Operation == sam.CigarSoftClip || op.Operation == sam.CigarHardClip:
		case first && !sam.IsAligned(op.Operation):
			t.Errorf("%v trimmed to %v %v: first kept operation is %c", original, window, aln.CIGAR, op.Operation)
		default:
			first = false
		}
		if sam.ConsumesReference(op.Operation) {
			if pos < window.From || pos+op.Length > window.To {
				t.Errorf("%v trimmed to %v %v: operation %v%c at %v outside window",
					original, window, aln.CIGAR, op.Length, op.Operation, pos)
			}
			pos += op.Length
		}
	}
}

func TestTrimProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		cigarString := randomCigar(rnd)
		pos := 1 + rnd.Int31n(200)
		aln := newTestAlignment(t, pos, cigarString)
		cigar, _ := sam.ScanCigarString(cigarString)
		refLength := sam.ReferenceLength(cigar)
		original := fmt.Sprintf("%v %v", pos, cigarString)

		w1 := randomWindow(rnd, pos, refLength)
		trimmed, outcome := trimCopy(t, aln, w1)

		// length invariant
		trimmedCigar, err := sam.ScanCigarString(trimmed.CIGAR)
		if err != nil {
			t.Fatalf("%v trimmed to %v: invalid CIGAR %v", original, w1, trimmed.CIGAR)
		}
		if sam.ReadLength(trimmedCigar) != sam.ReadLength(cigar) {
			t.Errorf("%v trimmed to %v: read length of %v differs", original, w1, trimmed.CIGAR)
		}
		if err := trimmed.Validate(); err != nil {
			t.Errorf("%v trimmed to %v: %v", original, w1, err)
		}

		// reference span containment
		if outcome == Retained {
			checkSpan(t, &trimmed, w1, original)
		} else if trimmed.POS != pos {
			t.Errorf("%v trimmed to %v: excluded alignment moved to %v", original, w1, trimmed.POS)
		}

		// idempotence
		again, againOutcome := trimCopy(t, &trimmed, w1)
		if againOutcome != outcome || again.POS != trimmed.POS || again.CIGAR != trimmed.CIGAR {
			t.Errorf("%v trimmed to %v: %v %v, trimmed again: %v %v",
				original, w1, trimmed.POS, trimmed.CIGAR, again.POS, again.CIGAR)
		}

		// monotonicity
		from := w1.From + rnd.Int31n(w1.To-w1.From)
		w2 := Window{From: from, To: from + 1 + rnd.Int31n(w1.To-from)}
		nested, nestedOutcome := trimCopy(t, &trimmed, w2)
		direct, directOutcome := trimCopy(t, aln, w2)
		if nestedOutcome != directOutcome || nested.CIGAR != direct.CIGAR ||
			(directOutcome == Retained && nested.POS != direct.POS) {
			t.Errorf("%v: trimmed to %v then %v gives %v %v, trimmed to %v directly gives %v %v",
				original, w1, w2, nested.POS, nested.CIGAR, w2, direct.POS, direct.CIGAR)
		}
	}
}
