// Public domain.

// Package paprog is the polaralign command line program.
package paprog

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/soniakeys/exit"

	"github.com/soniakeys/polaralign/internal/runfile"
)

const versionString = "polaralign version 0.3"
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()

	// these functions all set up and terminate on error
	cl := parseCommandLine()
	opt := readConfig(cl)
	if cl.logLevel != "" {
		if err := opt.logLevel.UnmarshalText([]byte(cl.logLevel)); err != nil {
			exit.Log(err)
		}
	}
	a := &aligner{
		opt: opt,
		log: slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: opt.logLevel})),
	}
	if cl.updateLog != "" {
		lf, err := os.Create(cl.updateLog)
		if err != nil {
			exit.Log(err)
		}
		defer lf.Close()
		a.ul = log.New(lf, "", log.LstdFlags|log.LUTC)
	}

	// open run file
	var f *os.File
	if cl.fnRuns == "-" {
		f = os.Stdin
		cl.fnRuns = "input stream"
	} else {
		var err error
		f, err = os.Open(cl.fnRuns)
		if err != nil {
			exit.Log(err)
		}
		defer f.Close()
	}

	// column headings, delayed until now to avoid printing column headings
	// only to terminate with an error message if some initialization fails.
	printHeadings(os.Stdout, opt)
	if err := run(context.Background(), f, a, os.Stdout); err != nil {
		exit.Log(fmt.Errorf("%s: %w", cl.fnRuns, err))
	}
}

type runSeq struct {
	r   *runfile.Run
	rch chan string
}

// run evaluates the runs read from in concurrently and writes the results
// to out in the order the runs were read.
//
// All goroutines started by run have ended or are ending when it returns.
// A canceled ctx stops the run with ctx.Err().
func run(ctx context.Context, in io.Reader, a *aligner, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// runChIn supplies runs by reading the run file.  It is fed by
	// splitter, running as a separate goroutine.  If splitter encounters
	// an error reading the file, it reports the error on errCh and
	// terminates immediately.
	runChIn := make(chan *runfile.Run)
	errCh := make(chan error)
	go splitter(ctx, in, runChIn, errCh)

	// prCh keeps results in submission order.  It is buffered so that a
	// fast worker can drop off its result without waiting for workers
	// ahead of it.  The size must be at least maxWorkers.
	maxWorkers := runtime.GOMAXPROCS(0)
	prCh := make(chan chan string, maxWorkers*2)
	runChSeq := make(chan *runSeq)

	// dispatcher.  for each run, attach a return channel that works like
	// a ticket for picking up the result, hand the run to a worker and
	// drop the ticket in the queue for printing.  closing runChSeq lets
	// the workers go.
	go func() {
		defer close(prCh)
		defer close(runChSeq)
		for r := range runChIn {
			rch := make(chan string, 1)
			select {
			case runChSeq <- &runSeq{r, rch}:
			case <-ctx.Done():
				return
			}
			select {
			case prCh <- rch:
			case <-ctx.Done():
				return
			}
		}
	}()

	// workers are started only as the dispatcher calls for them.  there
	// may be more cores than runs.
	go func() {
		for n := 0; n < maxWorkers; n++ {
			s, ok := <-runChSeq
			if !ok {
				return
			}
			go worker(ctx, a, s, runChSeq)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case rch, ok := <-prCh:
			if !ok {
				return ctx.Err()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-errCh:
				return err
			case r := <-rch:
				fmt.Fprintln(out, r)
			}
		}
	}
}

// splitter decodes runs and sends them on runCh.  A decoding error ends
// the stream.
func splitter(ctx context.Context, in io.Reader, runCh chan<- *runfile.Run,
	errCh chan<- error) {
	defer close(runCh)
	for d := runfile.NewDecoder(in); ; {
		r, err := d.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			select {
			case errCh <- err:
			case <-ctx.Done():
			}
			return
		}
		select {
		case runCh <- r:
		case <-ctx.Done():
			return
		}
	}
}

// worker evaluates runs.  The first run is s, more are received on runCh
// until it is closed.
func worker(ctx context.Context, a *aligner, s *runSeq, runCh <-chan *runSeq) {
	s.rch <- a.align(ctx, s.r) // buffered
	for s := range runCh {
		s.rch <- a.align(ctx, s.r)
	}
}

type commandLine struct {
	dc        string // config file
	updateLog string // -log file
	logLevel  string
	fnRuns    string
}

func parseCommandLine() *commandLine {
	var cl commandLine
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	flag.StringVar(&cl.dc, "c", "", "")
	flag.StringVar(&cl.updateLog, "log", "", "")
	flag.StringVar(&cl.logLevel, "loglevel", "", "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: polaralign [options] <runfile>  evaluate alignment runs in file
       polaralign [options] -          evaluate alignment runs from stdin
       polaralign -h                   display help and quick reference
       polaralign -v                   display version and copyright

Options:
       -c <config-file>
       -log <update-log-file>
       -loglevel <debug|info|warn|error>
`)
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	case flag.NArg() != 1:
		flag.Usage()
		os.Exit(1)
	}
	cl.fnRuns = flag.Arg(0)
	return &cl
}

func printHeadings(w io.Writer, opt *options) {
	if opt.headings {
		fmt.Fprintln(w, versionString)
		fmt.Fprintf(w, "%-8s %8s %8s %8s  %s\n",
			"Run", "Alt′", "Az′", "Total′", "Adjust")
	}
}

func printHelp() {
	fmt.Println(`
Polaralign computes the polar axis error of an equatorial mount from three
plate solved images taken while rotating the mount about its polar axis.
Input is a run file of YAML documents, one per alignment run, giving the
observer, the weather and the plate solves.  Output is the altitude and
azimuth error of each run in arc minutes.  If a run has a live sequence,
the error is followed solve by solve as the axis is adjusted.

Config file keywords:
   headings
   noheadings
   refractpole
   truepole
   live
   nolive
   tolerance = <arc minutes>
   minspread = <degrees>
   distance = <degrees>
   wavelength = <micron>
   loglevel = <debug|info|warn|error>

For full documentation:
   go doc github.com/soniakeys/polaralign`)
}
