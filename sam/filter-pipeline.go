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
	"fmt"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elclip/internal"
)

type (
	// An AlignmentFilter receives an Alignment which it can modify. It
	// returns true if the alignment should be kept, and false if the
	// alignment should be removed.
	AlignmentFilter func(*Alignment) bool

	// A Filter receives a Header and returns an AlignmentFilter or nil.
	Filter func(*Header) AlignmentFilter

	// A PipelineOutput can add nodes to the given pargo pipeline. The
	// nodes receive *Batch values in input order when they are
	// ordered nodes. AddNodes also receives the header that should
	// be added to the output. Any error should be reported to the
	// pipeline by calling p.SetErr(err) with a non-nil error value.
	PipelineOutput interface {
		AddNodes(p *pipeline.Pipeline, header *Header)
	}

	// A PipelineInput arranges for a pargo pipeline to be properly
	// initialized, to run the given filters, to call
	// output.AddNodes(...), and eventually to run the pipeline.
	PipelineInput interface {
		RunPipeline(output PipelineOutput, filters []Filter) error
	}

	// A Batch is the unit of data that flows through a pipeline.
	//
	// Err is set when a line of the batch could not be parsed. The
	// alignments before the offending line are still present, but
	// outputs must not write anything from a batch with an error.
	Batch struct {
		Alignments []*Alignment
		Records    [][]byte
		Err        error
	}
)

// BatchSize is the number of lines in each batch. Batches have a
// fixed size so that line numbers can be derived from batch
// sequence numbers.
const BatchSize = 8192

// ComposeFilters takes a Header and a slice of Filter functions, and
// successively calls these functions to generate the corresponding
// AlignmentFilter predicates. It returns a function that applies
// these predicates to a slice of alignments, removing in place the
// alignments that are rejected. ComposeFilters returns nil if all
// AlignmentFilters are nil.
func ComposeFilters(header *Header, hdrFilters []Filter) func([]*Alignment) []*Alignment {
	var alnFilters []AlignmentFilter
	for _, f := range hdrFilters {
		if f != nil {
			if alnFilter := f(header); alnFilter != nil {
				alnFilters = append(alnFilters, alnFilter)
			}
		}
	}
	if len(alnFilters) == 0 {
		return nil
	}
	return func(alns []*Alignment) []*Alignment {
		kept := alns[:0]
	alnLoop:
		for _, aln := range alns {
			for _, alnFilter := range alnFilters {
				if !alnFilter(aln) {
					continue alnLoop
				}
			}
			kept = append(kept, aln)
		}
		return kept
	}
}

// BytesToAlignment returns a pargo pipeline.Filter that parses
// batches of SAM lines into a *Batch, and applies alnFilter to the
// result if it is not nil. Each alignment records its input line
// number.
func BytesToAlignment(f *InputFile, alnFilter func([]*Alignment) []*Alignment) pipeline.Filter {
	return func(_ *pipeline.Pipeline, _ pipeline.NodeKind, _ *int) (receiver pipeline.Receiver, _ pipeline.Finalizer) {
		receiver = func(seqNo int, data interface{}) interface{} {
			lines := data.([][]byte)
			batch := &Batch{Alignments: make([]*Alignment, 0, len(lines))}
			offset := f.headerLines + seqNo*BatchSize
			for index, line := range lines {
				aln, err := f.ParseAlignment(line)
				if err != nil {
					batch.Err = withLine(err, offset+index+1)
					return batch
				}
				aln.SetLine(offset + index + 1)
				batch.Alignments = append(batch.Alignments, aln)
			}
			if alnFilter != nil {
				batch.Alignments = alnFilter(batch.Alignments)
			}
			return batch
		}
		return
	}
}

// AlignmentToBytes returns a pargo pipeline.Filter that formats the
// alignments of each *Batch into its Records.
func AlignmentToBytes(f *OutputFile) pipeline.Filter {
	return func(_ *pipeline.Pipeline, _ pipeline.NodeKind, _ *int) (receiver pipeline.Receiver, _ pipeline.Finalizer) {
		receiver = func(_ int, data interface{}) interface{} {
			batch := data.(*Batch)
			if batch.Err != nil {
				return batch
			}
			records := make([][]byte, 0, len(batch.Alignments))
			buf := internal.ReserveByteBuffer()
			defer func() { internal.ReleaseByteBuffer(buf) }()
			var err error
			for _, aln := range batch.Alignments {
				if buf, err = f.FormatAlignment(aln, buf[:0]); err != nil {
					batch.Err = fmt.Errorf("%v, while formatting SAM alignment %v at line %v", err, aln.QNAME, aln.Line())
					return batch
				}
				records = append(records, append([]byte(nil), buf...))
			}
			batch.Records = records
			return batch
		}
		return
	}
}

// OrderedBatches returns a pargo pipeline.Node that passes every
// batch in input order to receive. The first batch that carries an
// error stops the pipeline with that error, so the error reported
// is always the one for the earliest offending line. Batches after
// it are ignored.
func OrderedBatches(receive func(*Batch) error) pipeline.Node {
	return pipeline.StrictOrd(func(p *pipeline.Pipeline, _ pipeline.NodeKind, _ *int) (receiver pipeline.Receiver, _ pipeline.Finalizer) {
		failed := false
		receiver = func(_ int, data interface{}) interface{} {
			batch := data.(*Batch)
			if failed {
				return batch
			}
			err := batch.Err
			if err == nil {
				err = receive(batch)
			}
			if err != nil {
				failed = true
				p.SetErr(err)
			}
			return batch
		}
		return
	})
}

// AddNodes implements the PipelineOutput interface for SAM OutputFile values.
func (f *OutputFile) AddNodes(p *pipeline.Pipeline, header *Header) {
	if err := f.FormatHeader(header); err != nil {
		p.SetErr(fmt.Errorf("%v, while writing a SAM header to output", err))
		return
	}
	p.Add(
		pipeline.LimitedPar(0, AlignmentToBytes(f)),
		OrderedBatches(func(batch *Batch) error {
			for _, record := range batch.Records {
				if _, err := f.Write(record); err != nil {
					return fmt.Errorf("%v, while writing SAM alignment strings to output", err)
				}
			}
			return nil
		}),
	)
}

// Sam represents a complete SAM file in memory.
type Sam struct {
	Header     *Header
	Alignments []*Alignment
}

// NewSam allocates and initializes an empty Sam.
func NewSam() *Sam { return &Sam{Header: NewHeader()} }

// AddNodes implements the PipelineOutput interface for Sam values.
func (sam *Sam) AddNodes(p *pipeline.Pipeline, header *Header) {
	sam.Header = header
	p.Add(OrderedBatches(func(batch *Batch) error {
		sam.Alignments = append(sam.Alignments, batch.Alignments...)
		return nil
	}))
}

type multiOutput []PipelineOutput

// Outputs combines several outputs into one. Their nodes are added
// to the pipeline in the given order.
func Outputs(outputs ...PipelineOutput) PipelineOutput {
	return multiOutput(outputs)
}

func (outputs multiOutput) AddNodes(p *pipeline.Pipeline, header *Header) {
	for _, output := range outputs {
		output.AddNodes(p, header)
	}
}

// RunPipeline implements the PipelineInput interface for SAM InputFile values.
func (f *InputFile) RunPipeline(output PipelineOutput, hdrFilters []Filter) error {
	header, err := f.ParseHeader()
	if err != nil {
		return err
	}
	alnFilter := ComposeFilters(header, hdrFilters)
	var p pipeline.Pipeline
	p.Source(f)
	p.SetVariableBatchSize(BatchSize, BatchSize)
	p.Add(pipeline.LimitedPar(0, BytesToAlignment(f, alnFilter)))
	output.AddNodes(&p, header)
	p.Run()
	if err := p.Err(); err != nil {
		return err
	}
	return f.Err()
}
