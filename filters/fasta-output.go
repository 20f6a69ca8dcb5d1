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

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elclip/fasta"
	"github.com/exascience/elclip/sam"
)

type alignedSequenceOutput struct {
	writer *fasta.Writer
}

// AlignedSequencesTo returns a sam.PipelineOutput that writes the
// aligned part of each alignment (see AlignedSequence) as a FASTA
// record named after QNAME, in input order. Alignments without an
// aligned part are skipped.
func AlignedSequencesTo(writer *fasta.Writer) sam.PipelineOutput {
	return alignedSequenceOutput{writer}
}

func (output alignedSequenceOutput) AddNodes(p *pipeline.Pipeline, _ *sam.Header) {
	p.Add(sam.OrderedBatches(func(batch *sam.Batch) error {
		for _, aln := range batch.Alignments {
			if seq, ok := AlignedSequence(aln); ok {
				if err := output.writer.Write(aln.QNAME, seq); err != nil {
					return fmt.Errorf("%v, while writing FASTA record %v", err, aln.QNAME)
				}
			}
		}
		return nil
	}))
}
