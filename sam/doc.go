// Package sam is a library for parsing and representing SAM files,
// and for streaming their alignments through a parallel pipeline
// that preserves input order.
//
// Modifications to alignments are expressed as filters. A pipeline
// is executed with the RunPipeline method of an InputFile, which
// parses the header, parses batches of alignment lines in parallel,
// applies the filters, and hands the batches in their original order
// to one or more PipelineOutput values, such as an OutputFile or an
// in-memory Sam.
//
// CigarCursor walks CIGAR strings with parallel reference and read
// positions, splitting operations on demand, and is the basis for
// clipping alignments to reference windows.
//
// The pipeline is expressed with the pargo library, see
// https://godoc.org/github.com/ExaScience/pargo/pipeline for
// details.
package sam
