// Copyright (C) 2020 Jérémie Decock
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/assess"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/clean"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/logging"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/ops"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/rest"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/synth"
)

const version="0.3.0"

var cpuprofile=flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile=flag.String("memprofile", "", "write memory profile to `file`")

var quiet=flag.Bool("quiet", false, "suppress console output, log file output is unaffected")
var logF =flag.String("log", "%auto", "save log output to `file`. `%auto` derives the name from the input file")
var fig  =flag.String("fig", "%auto", "save benchmark figure to `file` (.png or .pdf). `%auto` derives the name from the input file, blank disables")
var out  =flag.String("out", "", "save cleaned images with given filename pattern, e.g. `cleaned%d.fits`")

var algo =flag.String("clean", "tailcut", "cleaning algorithm, one of tailcut, wavelets")
var high =flag.Float64("high", 10, "tailcut high threshold for core pixels, in photoelectrons")
var low  =flag.Float64("low", 5, "tailcut low threshold for boundary pixels, in photoelectrons")
var killIsolated=flag.Bool("killIsolated", false, "remove surviving pixels without surviving neighbors")

var wScales=flag.Int("wScales", 4, "wavelet cleaning: number of scales")
var wSigma =flag.Float64("wSigma", 3, "wavelet cleaning: detection threshold in noise sigmas")
var wKeepLast=flag.Bool("wKeepLast", false, "wavelet cleaning: keep the residual smooth plane")
var wOpts  =flag.String("wOpts", "", "wavelet cleaning: legacy mr_filter-style option string, e.g. '-K -k -C1 -m3 -s3 -n4'. Overrides the other wavelet flags")

var method =flag.String("method", "all", "assessment method, one of all, mse, nrmse, correlation, shape")
var threads=flag.Int("threads", runtime.GOMAXPROCS(0), "maximum number of benchmark files processed in parallel")

var addr  =flag.String("addr", ":8080", "listen address for the serve command")
var chroot=flag.String("chroot", "", "serve: change filesystem root to given directory (requires root)")
var setuid=flag.Int("setuid", -1, "serve: change user id after opening the port, -1=no change")

var genOut  =flag.String("genOut", "bench%04d.fits", "gen: output filename pattern")
var genCount=flag.Int("genCount", 1, "gen: number of benchmark files to generate")
var genPsi  =flag.Float64("genPsi", 45, "gen: shower orientation in degrees")
var genNoise=flag.Float64("genNoise", 2, "gen: mean night sky background per pixel")
var genSeed =flag.Uint("genSeed", 1, "gen: random seed")

func main() {
	start:=time.Now()
	flag.Usage=func() {
		fmt.Printf(`ctabench Copyright (c) 2020 Jérémie Decock
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (bench|gen|serve|legal|version|help) (bench0.fits ... benchn.fits)

Commands:
  bench   Clean and score the given benchmark files
  gen     Generate synthetic benchmark files
  serve   Serve the benchmark pipeline over HTTP
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	logging.SetQuiet(*quiet)

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}

	// Initialize logging to file in addition to stdout, if selected
	if *logF=="%auto" {
		if args[0]=="bench" && len(args)>1 {
			*logF=trimFITSSuffix(filepath.Base(args[1]))+".log"
		} else {
			*logF=""
		}
	}
	if *logF!="" {
		if err:=logging.AlsoToFile(*logF); err!=nil {
			logging.Fatalf("Unable to open logfile '%s'\n", *logF)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile!="" {
		f, err:=os.Create(*cpuprofile)
		if err!=nil { logging.Fatalf("Could not create CPU profile: %s\n", err.Error()) }
		defer f.Close()
		if err:=pprof.StartCPUProfile(f); err!=nil {
			logging.Fatalf("Could not start CPU profile: %s\n", err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	var err error
	switch args[0] {
	case "bench":
		err=cmdBench(args[1:])

	case "gen":
		err=cmdGen()

	case "serve":
		logWriter:=logging.Writer()
		if err:=rest.MakeSandbox(logWriter, *chroot, *setuid); err!=nil {
			logging.Fatalf("Sandbox error: %s\n", err.Error())
		}
		err=rest.Serve(*addr)

	case "legal":
		cmdLegal()

	case "version":
		logging.Printf("Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Printf("Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed:=time.Now().Sub(start)
	logging.Printf("\nDone after %v\n", elapsed)
	logging.Sync()

	if err!=nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(-1)
	}

	// Store memory profile if flagged
	if *memprofile!="" {
		f, err:=os.Create(*memprofile)
		if err!=nil { logging.Fatalf("Could not create memory profile: %s\n", err.Error()) }
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err:=pprof.Lookup("allocs").WriteTo(f, 0); err!=nil {
			logging.Fatalf("Could not write allocation profile: %s\n", err.Error())
		}
	}
}

// Cleans, scores and renders the given benchmark files
func cmdBench(fileArgs []string) error {
	if len(fileArgs)<1 {
		return fmt.Errorf("bench command needs at least one file argument")
	}
	logWriter:=logging.Writer()
	c:=ops.NewContext(logWriter, hillas.ASTRIGeometry())
	c.MaxThreads=*threads

	switch *method {
	case assess.MethodAll, assess.MethodMSE, assess.MethodNRMSE, assess.MethodCorrelation, assess.MethodShape:
	default:
		return fmt.Errorf("unknown assessment method '%s'", *method)
	}

	cleanOp, err:=cleanerFromFlags()
	if err!=nil { return err }

	seq:=ops.NewOpSequence(
		ops.NewOpLoadMany(fileArgs),
		cleanOp,
		ops.NewOpAssess(*method),
		ops.NewOpHillas(),
		ops.NewOpRender(figPattern()),
		ops.NewOpSaveCleaned(*out),
	)

	m, err:=json.MarshalIndent(seq, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "\nProcessing benchmarks with these settings:\n%s\n", string(m))

	promises, err:=seq.MakePromises(nil, c)
	if err!=nil { return err }
	results, err:=ops.MaterializeAll(promises, c.MaxThreads, false)
	// failures of single files surface here while the rest complete
	fmt.Fprintf(logWriter, "\nProcessed %d of %d benchmarks\n", len(results), len(promises))
	return err
}

func cleanerFromFlags() (ops.Operator, error) {
	switch *algo {
	case "tailcut":
		return ops.NewOpTailcut(float32(*high), float32(*low), *killIsolated), nil
	case "wavelets":
		if *wOpts!="" {
			opts, kill, err:=clean.ParseWaveletOptions(*wOpts)
			if err!=nil { return nil, err }
			return ops.NewOpWavelet(opts, kill), nil
		}
		opts:=clean.WaveletOptions{
			NumScales:          *wScales,
			NSigma:             float32(*wSigma),
			SuppressLastScale:  !*wKeepLast,
			DetectOnlyPositive: true,
		}
		return ops.NewOpWavelet(opts, *killIsolated), nil
	}
	return nil, fmt.Errorf("unknown cleaning algorithm '%s'", *algo)
}

func figPattern() string {
	if *fig=="%auto" {
		return "%auto" // expanded per benchmark file by the render operator
	}
	return *fig
}

// Generates synthetic benchmark files
func cmdGen() error {
	p:=synth.DefaultParams()
	p.Psi=float32(*genPsi*math.Pi/180)
	p.NoiseLevel=float32(*genNoise)
	for i:=0; i<*genCount; i++ {
		p.Seed=uint32(*genSeed)+uint32(i)
		bench:=synth.Generate(p)
		fileName:=*genOut
		if strings.Contains(fileName, "%") {
			fileName=fmt.Sprintf(fileName, i)
		}
		if err:=fits.WriteBenchmarkFile(fileName, bench.Input, bench.Reference, bench.Metadata); err!=nil {
			return err
		}
		logging.Printf("%d: Wrote synthetic benchmark to %s\n", i, fileName)
	}
	return nil
}

func trimFITSSuffix(name string) string {
	for _,s:=range []string{".gz", ".fits", ".fit", ".fts"} {
		name=strings.TrimSuffix(name, s)
	}
	return name
}
