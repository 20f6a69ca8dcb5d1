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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/exascience/elclip/utils"
)

func trimLineEnd(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// ParseHeader parses the header section from the given reader. It
// returns the header and the number of lines consumed.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	hdr = NewHeader()
	for {
		switch data, err := reader.Peek(1); {
		case err == io.EOF:
			return hdr, lines, nil
		case err != nil:
			return hdr, lines, err
		case data[0] != '@':
			return hdr, lines, nil
		}
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return hdr, lines, err
		}
		lines++
		if herr := hdr.AddLine(string(trimLineEnd(line))); herr != nil {
			return hdr, lines, withLine(herr, lines)
		}
	}
}

// A ByteArray is the value of an optional field of type H.
type ByteArray []byte

type fieldParser func(*StringScanner, string) interface{}

func (sc *StringScanner) parseChar(field string) interface{} {
	value, _ := sc.readByteUntil(field, '\t')
	return value
}

func (sc *StringScanner) parseInteger(field string) interface{} {
	value, _ := sc.readUntil('\t')
	val, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		sc.fail(field, "%v", err)
	}
	return int32(val)
}

func (sc *StringScanner) parseFloat(field string) interface{} {
	value, _ := sc.readUntil('\t')
	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		sc.fail(field, "%v", err)
	}
	return float32(val)
}

func (sc *StringScanner) parseString(_ string) interface{} {
	value, _ := sc.readUntil('\t')
	return value
}

func (sc *StringScanner) parseByteArray(field string) interface{} {
	value, _ := sc.readUntil('\t')
	if len(value)%2 != 0 {
		sc.fail(field, "odd number of hex digits")
		return nil
	}
	result := make(ByteArray, 0, len(value)>>1)
	for i := 0; i < len(value); i += 2 {
		val, err := strconv.ParseUint(value[i:i+2], 16, 8)
		if err != nil {
			sc.fail(field, "%v", err)
			return nil
		}
		result = append(result, byte(val))
	}
	return result
}

func (sc *StringScanner) parseNumericArray(field string) interface{} {
	ntype, ok := sc.readByteUntil(field, ',')
	if !ok {
		sc.fail(field, "missing entry in numeric array")
		return nil
	}
	var (
		ints   []int64
		floats []float32
	)
	for {
		entry, sep := sc.readUntil2(',', '\t')
		var err error
		switch ntype {
		case 'c', 's', 'i':
			var val int64
			val, err = strconv.ParseInt(entry, 10, arrayBitSize[ntype])
			ints = append(ints, val)
		case 'C', 'S', 'I':
			var val uint64
			val, err = strconv.ParseUint(entry, 10, arrayBitSize[ntype])
			ints = append(ints, int64(val))
		case 'f':
			var val float64
			val, err = strconv.ParseFloat(entry, 32)
			floats = append(floats, float32(val))
		default:
			sc.fail(field, "invalid numeric array type %q", ntype)
			return nil
		}
		if err != nil {
			sc.fail(field, "%v", err)
			return nil
		}
		if sep != ',' {
			break
		}
	}
	switch ntype {
	case 'c':
		result := make([]int8, len(ints))
		for i, v := range ints {
			result[i] = int8(v)
		}
		return result
	case 'C':
		result := make([]uint8, len(ints))
		for i, v := range ints {
			result[i] = uint8(v)
		}
		return result
	case 's':
		result := make([]int16, len(ints))
		for i, v := range ints {
			result[i] = int16(v)
		}
		return result
	case 'S':
		result := make([]uint16, len(ints))
		for i, v := range ints {
			result[i] = uint16(v)
		}
		return result
	case 'i':
		result := make([]int32, len(ints))
		for i, v := range ints {
			result[i] = int32(v)
		}
		return result
	case 'I':
		result := make([]uint32, len(ints))
		for i, v := range ints {
			result[i] = uint32(v)
		}
		return result
	default:
		return floats
	}
}

var arrayBitSize = map[byte]int{'c': 8, 'C': 8, 's': 16, 'S': 16, 'i': 32, 'I': 32}

var optionalFieldParseTable = map[byte]fieldParser{
	'A': (*StringScanner).parseChar,
	'i': (*StringScanner).parseInteger,
	'f': (*StringScanner).parseFloat,
	'Z': (*StringScanner).parseString,
	'H': (*StringScanner).parseByteArray,
	'B': (*StringScanner).parseNumericArray,
}

// ParseOptionalField parses one TAG:TYPE:VALUE field.
func (sc *StringScanner) ParseOptionalField() (tag utils.Symbol, value interface{}) {
	if sc.err != nil {
		return nil, nil
	}
	tagname, ok := sc.readUntil(':')
	if !ok || (len(tagname) != 2) {
		sc.fail("TAG", "invalid field tag %q", tagname)
		return nil, nil
	}
	field := "TAG " + tagname
	typebyte, ok := sc.readByteUntil(field, ':')
	if !ok {
		sc.fail(field, "missing field type")
		return nil, nil
	}
	parser, found := optionalFieldParseTable[typebyte]
	if !found {
		sc.fail(field, "invalid field type %q", typebyte)
		return nil, nil
	}
	return utils.Intern(tagname), parser(sc, field)
}

func (sc *StringScanner) mandatoryField(field string) string {
	if sc.err != nil {
		return ""
	}
	if sc.eol {
		sc.fail(field, "missing field")
		return ""
	}
	value, ok := sc.readUntil('\t')
	sc.eol = !ok
	if value == "" {
		sc.fail(field, "empty field")
	}
	return value
}

func (sc *StringScanner) int32Field(field string) int32 {
	value := sc.mandatoryField(field)
	if sc.err != nil {
		return 0
	}
	val, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		sc.fail(field, "%v", err)
	}
	return int32(val)
}

func (sc *StringScanner) uintField(field string, bitSize int) uint64 {
	value := sc.mandatoryField(field)
	if sc.err != nil {
		return 0
	}
	val, err := strconv.ParseUint(value, 10, bitSize)
	if err != nil {
		sc.fail(field, "%v", err)
	}
	return val
}

// ParseAlignment parses the line the scanner was reset with. Errors
// are reported through Err.
func (sc *StringScanner) ParseAlignment() *Alignment {
	aln := NewAlignment()

	aln.QNAME = sc.mandatoryField("QNAME")
	aln.FLAG = uint16(sc.uintField("FLAG", 16))
	aln.RNAME = sc.mandatoryField("RNAME")
	aln.POS = sc.int32Field("POS")
	aln.MAPQ = byte(sc.uintField("MAPQ", 8))
	aln.CIGAR = sc.mandatoryField("CIGAR")
	aln.RNEXT = sc.mandatoryField("RNEXT")
	aln.PNEXT = sc.int32Field("PNEXT")
	aln.TLEN = sc.int32Field("TLEN")
	aln.SEQ = sc.mandatoryField("SEQ")
	if sc.err != nil {
		return aln
	}
	if sc.eol {
		sc.fail("QUAL", "missing field")
		return aln
	}
	qual, found := sc.readUntil('\t')
	if qual == "" {
		sc.fail("QUAL", "empty field")
		return aln
	}
	aln.QUAL = qual
	if found {
		aln.rawTags = sc.data[sc.index-1:]
		aln.hasRawTags = true
	}

	for sc.Len() > 0 {
		aln.TAGS.Set(sc.ParseOptionalField())
	}
	if found && sc.err == nil && len(aln.TAGS) == 0 {
		sc.fail("TAG", "empty optional field")
	}
	return aln
}

// Validate checks the consistency of the CIGAR, SEQ and QUAL fields.
func (aln *Alignment) Validate() error {
	if aln.POS < 0 {
		return malformed("POS", fmt.Errorf("negative position %v", aln.POS))
	}
	cigar, err := ScanCigarString(aln.CIGAR)
	if err != nil {
		return malformed("CIGAR", err)
	}
	if err := checkClips(cigar); err != nil {
		return malformed("CIGAR", err)
	}
	if aln.SEQ == "*" {
		if aln.QUAL != "*" {
			return malformed("QUAL", fmt.Errorf("QUAL given without SEQ"))
		}
		return nil
	}
	if len(cigar) > 0 {
		if length := ReadLength(cigar); int(length) != len(aln.SEQ) {
			return &ParseError{
				Field:  "CIGAR",
				Kind:   ErrInconsistentLength,
				Detail: fmt.Errorf("CIGAR %v consumes %v read bases, SEQ has %v", aln.CIGAR, length, len(aln.SEQ)),
			}
		}
	}
	if (aln.QUAL != "*") && (len(aln.QUAL) != len(aln.SEQ)) {
		return malformed("QUAL", fmt.Errorf("QUAL has %v entries, SEQ has %v bases", len(aln.QUAL), len(aln.SEQ)))
	}
	return nil
}

// ParseAlignmentString parses and validates one SAM alignment line,
// given without its line terminator.
func ParseAlignmentString(line string) (*Alignment, error) {
	var sc StringScanner
	sc.Reset(line)
	aln := sc.ParseAlignment()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := aln.Validate(); err != nil {
		return nil, err
	}
	return aln, nil
}

// Format writes the header lines verbatim.
func (hdr *Header) Format(out *bufio.Writer) error {
	for _, line := range hdr.Lines {
		if _, err := out.WriteString(line); err != nil {
			return err
		}
		if err := out.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// FormatTag appends an optional field, including its leading tab.
func FormatTag(out []byte, tag utils.Symbol, value interface{}) ([]byte, error) {
	out = append(out, '\t')
	out = append(out, *tag...)

	switch val := value.(type) {
	case byte:
		out = append(append(out, ":A:"...), val)
	case int32:
		out = strconv.AppendInt(append(out, ":i:"...), int64(val), 10)
	case int:
		out = strconv.AppendInt(append(out, ":i:"...), int64(val), 10)
	case float32:
		out = strconv.AppendFloat(append(out, ":f:"...), float64(val), 'g', -1, 32)
	case string:
		out = append(append(out, ":Z:"...), val...)
	case ByteArray:
		out = append(out, ":H:"...)
		for _, b := range val {
			if b < 16 {
				out = append(out, '0')
			}
			out = strconv.AppendUint(out, uint64(b), 16)
		}
	case []int8:
		out = append(out, ":B:c"...)
		for _, v := range val {
			out = strconv.AppendInt(append(out, ','), int64(v), 10)
		}
	case []uint8:
		out = append(out, ":B:C"...)
		for _, v := range val {
			out = strconv.AppendUint(append(out, ','), uint64(v), 10)
		}
	case []int16:
		out = append(out, ":B:s"...)
		for _, v := range val {
			out = strconv.AppendInt(append(out, ','), int64(v), 10)
		}
	case []uint16:
		out = append(out, ":B:S"...)
		for _, v := range val {
			out = strconv.AppendUint(append(out, ','), uint64(v), 10)
		}
	case []int32:
		out = append(out, ":B:i"...)
		for _, v := range val {
			out = strconv.AppendInt(append(out, ','), int64(v), 10)
		}
	case []uint32:
		out = append(out, ":B:I"...)
		for _, v := range val {
			out = strconv.AppendUint(append(out, ','), uint64(v), 10)
		}
	case []float32:
		out = append(out, ":B:f"...)
		for _, v := range val {
			out = strconv.AppendFloat(append(out, ','), float64(v), 'g', -1, 32)
		}
	default:
		return nil, fmt.Errorf("unknown SAM alignment TAG type %T", value)
	}

	return out, nil
}

// Format appends the alignment as a SAM line, including the line
// terminator.
func (aln *Alignment) Format(out []byte) ([]byte, error) {
	out = append(append(out, aln.QNAME...), '\t')
	out = append(strconv.AppendUint(out, uint64(aln.FLAG), 10), '\t')
	out = append(append(out, aln.RNAME...), '\t')
	out = append(strconv.AppendInt(out, int64(aln.POS), 10), '\t')
	out = append(strconv.AppendUint(out, uint64(aln.MAPQ), 10), '\t')
	out = append(append(out, aln.CIGAR...), '\t')
	out = append(append(out, aln.RNEXT...), '\t')
	out = append(strconv.AppendInt(out, int64(aln.PNEXT), 10), '\t')
	out = append(strconv.AppendInt(out, int64(aln.TLEN), 10), '\t')
	out = append(append(out, aln.SEQ...), '\t')
	out = append(out, aln.QUAL...)

	if aln.hasRawTags {
		out = append(out, aln.rawTags...)
	} else {
		var err error
		for _, entry := range aln.TAGS {
			if out, err = FormatTag(out, entry.Key, entry.Value); err != nil {
				return nil, err
			}
		}
	}

	return append(out, '\n'), nil
}
