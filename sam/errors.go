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

import (
	"errors"
	"fmt"
)

// Kinds of parse errors, to be tested for with errors.Is.
var (
	// ErrMalformed reports a missing or unparseable field.
	ErrMalformed = errors.New("malformed SAM line")

	// ErrInconsistentLength reports a CIGAR string whose read length
	// disagrees with the length of SEQ.
	ErrInconsistentLength = errors.New("CIGAR read length differs from SEQ length")
)

// A ParseError describes why a SAM line could not be parsed.
type ParseError struct {
	// Line is the 1-based line number in the input, or 0 if unknown.
	Line int

	// Field names the offending field, for example "CIGAR".
	Field string

	// Kind is ErrMalformed or ErrInconsistentLength.
	Kind error

	// Detail is an optional underlying error.
	Detail error
}

func (err *ParseError) Error() string {
	msg := err.Kind.Error()
	if err.Field != "" {
		msg = fmt.Sprintf("%v in field %v", msg, err.Field)
	}
	if err.Detail != nil {
		msg = fmt.Sprintf("%v: %v", msg, err.Detail)
	}
	if err.Line > 0 {
		msg = fmt.Sprintf("line %v: %v", err.Line, msg)
	}
	return msg
}

// Unwrap returns the kind of the error.
func (err *ParseError) Unwrap() error {
	return err.Kind
}

func malformed(field string, detail error) *ParseError {
	return &ParseError{Field: field, Kind: ErrMalformed, Detail: detail}
}

// withLine sets the line number of err if it is a *ParseError.
func withLine(err error, line int) error {
	var perr *ParseError
	if errors.As(err, &perr) && perr.Line == 0 {
		perr.Line = line
		return perr
	}
	return fmt.Errorf("line %v: %w", line, err)
}
