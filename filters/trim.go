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
	"strings"

	"github.com/exascience/elclip/sam"
)

// ErrInvalidWindow reports a window that does not satisfy 1 <= From < To.
var ErrInvalidWindow = errors.New("invalid window")

// A ConfigError describes an unusable trimming configuration.
type ConfigError struct {
	Kind   error
	Detail string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("%v: %v", err.Kind, err.Detail)
}

// Unwrap returns the kind of the error.
func (err *ConfigError) Unwrap() error {
	return err.Kind
}

// A Window is a half-open interval [From, To) of 1-based reference
// positions.
type Window struct {
	From, To int32
}

// NewWindow returns the window [from, to), or a *ConfigError if it is
// empty or starts before position 1.
func NewWindow(from, to int32) (Window, error) {
	if from < 1 || from >= to {
		return Window{}, &ConfigError{
			Kind:   ErrInvalidWindow,
			Detail: fmt.Sprintf("need 1 <= start < end, got start %v and end %v", from, to),
		}
	}
	return Window{From: from, To: to}, nil
}

func (w Window) String() string {
	return fmt.Sprintf("[%v, %v)", w.From, w.To)
}

// ClipMode determines how reads outside a window are clipped
// completely.
type ClipMode int

const (
	// SoftClip keeps the bases of an excluded read in SEQ and QUAL.
	SoftClip ClipMode = iota

	// HardClip removes the bases of an excluded read from SEQ and
	// QUAL.
	HardClip
)

// ParseClipMode parses "soft" or "hard".
func ParseClipMode(s string) (ClipMode, error) {
	switch strings.ToLower(s) {
	case "", "soft", "s":
		return SoftClip, nil
	case "hard", "h":
		return HardClip, nil
	default:
		return SoftClip, fmt.Errorf("unknown clip mode %v", s)
	}
}

func (mode ClipMode) String() string {
	if mode == HardClip {
		return "hard"
	}
	return "soft"
}

// An Outcome tells what trimming did with an alignment.
type Outcome int

const (
	// Retained alignments keep at least one aligned base in the window.
	Retained Outcome = iota

	// Excluded alignments are clipped completely.
	Excluded

	// Unmapped alignments are passed through unchanged.
	Unmapped
)

func (outcome Outcome) String() string {
	switch outcome {
	case Retained:
		return "retained"
	case Excluded:
		return "excluded"
	case Unmapped:
		return "unmapped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(outcome))
	}
}

// trimCigar clips cigar, which is aligned at refStart, to window. It
// returns false if no aligned base falls in the window.
func trimCigar(cigar []sam.CigarOperation, refStart int32, window Window) (int32, []sam.CigarOperation, bool) {
	if window.From >= window.To {
		return refStart, nil, false
	}
	lead, core, trail := splitHardClips(cigar)
	cursor := sam.NewCigarCursor(core, refStart)
	cursor.AdvanceToRef(window.From)
	c := clipping{refStart: cursor.RefPos, leadClip: cursor.ReadPos}
	c.kept, _ = cursor.AdvanceToRef(window.To)
	c.trailClip = sam.ReadLength(core) - cursor.ReadPos
	if !c.stripEdges() {
		return refStart, nil, false
	}
	return c.refStart, c.cigar(lead, trail), true
}

// Trim clips the alignment to the given window, modifying it in
// place.
//
// Read bases aligned before window.From or at or after window.To
// become one leading and one trailing soft clip, together with any
// existing soft clips and with insertions next to the new clip
// boundaries. Deletions and skips next to the boundaries are
// dropped. POS moves to the first aligned base that is kept. SEQ,
// QUAL and the optional fields are not changed, so tags derived from
// the alignment such as NM or MD may be stale afterwards.
//
// Alignments without any aligned base in the window are excluded,
// see Exclude. Unmapped alignments are left unchanged.
//
// Trim only returns an error if the CIGAR string cannot be scanned.
func Trim(aln *sam.Alignment, window Window, mode ClipMode) (Outcome, error) {
	if aln.IsUnmappedStrict() {
		return Unmapped, nil
	}
	cigar, err := sam.ScanCigarString(aln.CIGAR)
	if err != nil {
		return Excluded, err
	}
	refStart, trimmed, ok := trimCigar(cigar, aln.POS, window)
	if !ok {
		excludeCigar(aln, cigar, mode)
		return Excluded, nil
	}
	aln.POS = refStart
	aln.CIGAR = sam.FormatCigar(trimmed)
	return Retained, nil
}

func excludeCigar(aln *sam.Alignment, cigar []sam.CigarOperation, mode ClipMode) {
	lead, core, trail := splitHardClips(cigar)
	readLength := sam.ReadLength(core)
	var result []sam.CigarOperation
	if mode == HardClip {
		result = appendClip(result, sam.CigarHardClip, sumLengths(lead)+readLength+sumLengths(trail))
		aln.SEQ = "*"
		aln.QUAL = "*"
	} else {
		result = append(result, lead...)
		result = appendClip(result, sam.CigarSoftClip, readLength)
		result = append(result, trail...)
	}
	aln.CIGAR = sam.FormatCigar(result)
}

// Exclude clips all read bases of the alignment, modifying it in
// place. In SoftClip mode the CIGAR string becomes a single soft clip
// covering the read, kept inside any existing outer hard clips. In
// HardClip mode it becomes a single hard clip, and SEQ and QUAL
// become "*". POS is not changed, so the alignment still points at
// its original locus.
//
// Unmapped alignments are left unchanged.
func Exclude(aln *sam.Alignment, mode ClipMode) (Outcome, error) {
	if aln.IsUnmappedStrict() {
		return Unmapped, nil
	}
	cigar, err := sam.ScanCigarString(aln.CIGAR)
	if err != nil {
		return Excluded, err
	}
	excludeCigar(aln, cigar, mode)
	return Excluded, nil
}

// AlignedSequence returns the part of SEQ between the leading and
// trailing clips. It returns false if the alignment is unmapped, has
// no sequence, or has no aligned base.
func AlignedSequence(aln *sam.Alignment) (string, bool) {
	if aln.IsUnmappedStrict() || aln.SEQ == "*" {
		return "", false
	}
	cigar, err := sam.ScanCigarString(aln.CIGAR)
	if err != nil {
		return "", false
	}
	_, core, _ := splitHardClips(cigar)
	c := clipping{kept: core}
	if !c.stripEdges() {
		return "", false
	}
	end := int32(len(aln.SEQ)) - c.trailClip
	if c.leadClip > end {
		return "", false
	}
	return aln.SEQ[c.leadClip:end], true
}
