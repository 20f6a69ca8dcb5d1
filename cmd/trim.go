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

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/exascience/elclip/bed"
	"github.com/exascience/elclip/fasta"
	"github.com/exascience/elclip/filters"
	"github.com/exascience/elclip/internal"
	"github.com/exascience/elclip/sam"
)

// TrimHelp is the help string for this command.
const TrimHelp = "\ntrim parameters:\n" +
	"elclip trim sam-file sam-output-file\n" +
	"(--start pos --end pos | --bed bed-file)\n" +
	"[--exclude-with [soft | hard]]\n" +
	"[--fasta fasta-output-file]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// maxReportedLines bounds the number of excluded line numbers that
// are logged individually.
const maxReportedLines = 64

type trimOptions struct {
	input, output string
	windows       *filters.Windows
	mode          filters.ClipMode
	fastaOutput   string
}

// checkPosition reports whether value can be used as a reference
// position, and logs an error if not.
func checkPosition(flag string, value int) bool {
	if value < 0 || value > math.MaxInt32 {
		log.Printf("Error: Invalid %v position %v, must be between 0 and %v.\n", flag, value, math.MaxInt32)
		return false
	}
	return true
}

// A stagedOutput is written to a hidden sibling of its final name,
// which is renamed to the final name only after a successful run.
type stagedOutput struct {
	pathname, target string
}

func stageOutput(name string) (stagedOutput, error) {
	pathname, err := internal.FullPathname(name)
	if err != nil {
		return stagedOutput{}, err
	}
	if err = os.MkdirAll(filepath.Dir(pathname), 0700); err != nil {
		return stagedOutput{}, err
	}
	if pathname == "/dev/stdout" {
		return stagedOutput{pathname, pathname}, nil
	}
	return stagedOutput{pathname, internal.TempSibling(pathname)}, nil
}

// finish renames the staged file on success, and removes it if err
// is not nil. It returns err, or the error of the rename.
func (out stagedOutput) finish(err error) error {
	if out.target == out.pathname {
		return err
	}
	if err != nil {
		_ = os.Remove(out.target)
		return err
	}
	return os.Rename(out.target, out.pathname)
}

func openOutputs(output, fastaOutput string) (samOut *sam.OutputFile, fastaOut *fasta.Writer, err error) {
	if samOut, err = sam.Create(output); err != nil {
		return nil, nil, err
	}
	if fastaOutput == "" {
		return samOut, nil, nil
	}
	if fastaOut, err = fasta.Create(fastaOutput); err != nil {
		_ = samOut.Close()
		return nil, nil, err
	}
	return samOut, fastaOut, nil
}

func runTrimPipeline(opts trimOptions, summary *filters.Summary) (err error) {
	pathname, err := internal.FullPathname(opts.input)
	if err != nil {
		return err
	}
	input, err := sam.Open(pathname)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := input.Close(); err == nil {
			err = nerr
		}
	}()

	samStage, err := stageOutput(opts.output)
	if err != nil {
		return err
	}
	var fastaStage stagedOutput
	if opts.fastaOutput != "" {
		if fastaStage, err = stageOutput(opts.fastaOutput); err != nil {
			return err
		}
	}
	finish := func(err error) error {
		err = samStage.finish(err)
		if opts.fastaOutput != "" {
			err = fastaStage.finish(err)
		}
		return err
	}

	output, fastaOutput, err := openOutputs(samStage.target, fastaStage.target)
	if err != nil {
		return finish(err)
	}
	var outputs sam.PipelineOutput = output
	if fastaOutput != nil {
		outputs = sam.Outputs(output, filters.AlignedSequencesTo(fastaOutput))
	}

	err = input.RunPipeline(outputs, []sam.Filter{filters.TrimToWindows(opts.windows, opts.mode, summary)})
	if nerr := output.Close(); err == nil {
		err = nerr
	}
	if fastaOutput != nil {
		if nerr := fastaOutput.Close(); err == nil {
			err = nerr
		}
	}
	return finish(err)
}

// Trim implements the elclip trim command.
func Trim() error {
	var (
		start, end  int
		bedFile     string
		excludeWith string
		fastaOutput string
		nrOfThreads int
		timed       bool
		logPath     string
	)

	var flags flag.FlagSet

	flags.IntVar(&start, "start", 0, "first reference position of the window (1-based)")
	flags.IntVar(&end, "end", 0, "first reference position after the window (1-based)")
	flags.StringVar(&bedFile, "bed", "", "take one window per contig from the given regions (bed format)")
	flags.StringVar(&excludeWith, "exclude-with", "soft", "clip alignments outside their window with soft or hard clips")
	flags.StringVar(&fastaOutput, "fasta", "", "also write the aligned part of each retained alignment to the given file (fasta format)")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 4, TrimHelp)

	input := getFilename(os.Args[2], TrimHelp)
	output := getFilename(os.Args[3], TrimHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if bedFile != "" && !checkExist("--bed", bedFile) {
		sanityChecksFailed = true
	}
	if fastaOutput != "" && !checkCreate("--fasta", fastaOutput) {
		sanityChecksFailed = true
	}

	windowFlags := start != 0 || end != 0
	if bedFile != "" && windowFlags {
		sanityChecksFailed = true
		log.Println("Error: Cannot use --bed together with --start and --end.")
	} else if bedFile == "" && !windowFlags {
		sanityChecksFailed = true
		log.Println("Error: Either --start and --end, or --bed must be given.")
	}

	mode, err := filters.ParseClipMode(excludeWith)
	if err != nil {
		sanityChecksFailed = true
		log.Println("Error:", err)
	}

	if !checkPosition("--start", start) {
		sanityChecksFailed = true
	}
	if !checkPosition("--end", end) {
		sanityChecksFailed = true
	}

	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, TrimHelp)
		os.Exit(1)
	}

	// building windows and output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " trim ", input, " ", output)

	var windows *filters.Windows
	if bedFile != "" {
		regions, err := bed.ParseBedFile(bedFile)
		if err != nil {
			return err
		}
		if windows, err = filters.WindowsFromBed(regions); err != nil {
			return err
		}
		fmt.Fprint(&command, " --bed ", bedFile)
	} else {
		window, err := filters.NewWindow(int32(start), int32(end))
		if err != nil {
			return err
		}
		windows = filters.FixedWindow(window)
		fmt.Fprint(&command, " --start ", start, " --end ", end)
	}

	fmt.Fprint(&command, " --exclude-with ", mode)

	if fastaOutput != "" {
		fmt.Fprint(&command, " --fasta ", fastaOutput)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}

	if timed {
		fmt.Fprint(&command, " --timed")
	}

	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	summary := filters.NewSummary()
	log.Println("Executing command:\n", command.String())
	log.Println("Run id:", summary.RunID)

	opts := trimOptions{
		input:       input,
		output:      output,
		windows:     windows,
		mode:        mode,
		fastaOutput: fastaOutput,
	}
	if err := timedRun(timed, "Trimming alignments.", func() error {
		return runTrimPipeline(opts, summary)
	}); err != nil {
		return err
	}
	return summary.Report(log.Writer(), maxReportedLines)
}
