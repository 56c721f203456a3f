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


package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/assess"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/synth"
)

func writeTestBenchmark(t *testing.T, dir string) string {
	t.Helper()
	fileName:=filepath.Join(dir, "bench.fits")
	bench:=synth.Generate(synth.DefaultParams())
	if err:=fits.WriteBenchmarkFile(fileName, bench.Input, bench.Reference, bench.Metadata); err!=nil {
		t.Fatalf("writing benchmark file: %s", err)
	}
	return fileName
}

func TestPipelineEndToEnd(t *testing.T) {
	fileName:=writeTestBenchmark(t, t.TempDir())

	log:=&bytes.Buffer{}
	c:=NewContext(log, hillas.ASTRIGeometry())

	seq:=NewOpSequence(
		NewOpLoad(0, fileName),
		NewOpTailcut(10, 5, true),
		NewOpAssess(assess.MethodAll),
		NewOpHillas(),
	)
	promises, err:=seq.MakePromises(nil, c)
	if err!=nil { t.Fatalf("building pipeline: %s", err) }
	results, err:=MaterializeAll(promises, c.MaxThreads, false)
	if err!=nil { t.Fatalf("running pipeline: %s", err) }
	if len(results)!=1 { t.Fatalf("expected 1 result, got %d", len(results)) }

	r:=results[0]
	if r.Cleaned==nil { t.Fatalf("no cleaned image") }
	if len(r.Scores)==0 || len(r.Scores)!=len(r.ScoreNames) {
		t.Errorf("bad scores: %v %v", r.Scores, r.ScoreNames)
	}

	// shower was simulated at 45 degrees
	psiDeg:=r.CleanedParams.Psi*180/math.Pi
	if math.Abs(psiDeg-45)>5 && math.Abs(psiDeg+135)>5 {
		t.Errorf("fitted psi %f degrees, simulated 45", psiDeg)
	}
	// the axis passes through the centroid, so the modal bin touches zero
	peak, _:=r.CleanedHist.Peak()
	if peak!=14 && peak!=15 {
		t.Errorf("modal hit distance bin %d not adjacent to zero", peak)
	}
	if r.RefHist==nil || r.RefParams==nil {
		t.Errorf("reference distribution missing")
	}
	if log.Len()==0 { t.Errorf("pipeline produced no log output") }
}

func TestPipelineRendersFigure(t *testing.T) {
	dir:=t.TempDir()
	fileName:=writeTestBenchmark(t, dir)
	figName:=filepath.Join(dir, "out.png")

	log:=&bytes.Buffer{}
	c:=NewContext(log, hillas.ASTRIGeometry())

	seq:=NewOpSequence(
		NewOpLoad(0, fileName),
		NewOpTailcut(10, 5, true),
		NewOpHillas(),
		NewOpRender(figName),
		NewOpSaveCleaned(filepath.Join(dir, "cleaned%d.fits")),
	)
	promises, err:=seq.MakePromises(nil, c)
	if err!=nil { t.Fatalf("building pipeline: %s", err) }
	if _, err=MaterializeAll(promises, c.MaxThreads, false); err!=nil {
		t.Fatalf("running pipeline: %s", err)
	}

	for _,f:=range []string{figName, filepath.Join(dir, "cleaned0.fits")} {
		if _, err:=os.Stat(f); err!=nil { t.Fatalf("expected output file %s: %s", f, err) }
	}
	cleaned, err:=fits.NewImageFromFile(filepath.Join(dir, "cleaned0.fits"), 0, io.Discard)
	if err!=nil { t.Fatalf("reading cleaned image back: %s", err) }
	if !cleaned.Is2D() { t.Errorf("cleaned image not 2D: %s", cleaned.DimensionsToString()) }
}

func TestPipelineContinuesOnEmptyReference(t *testing.T) {
	dir:=t.TempDir()
	fileName:=filepath.Join(dir, "bench.fits")
	bench:=synth.Generate(synth.DefaultParams())
	for i:=range bench.Reference.Data {
		bench.Reference.Data[i]=0
	}
	if err:=fits.WriteBenchmarkFile(fileName, bench.Input, bench.Reference, bench.Metadata); err!=nil {
		t.Fatalf("writing benchmark file: %s", err)
	}
	figName:=filepath.Join(dir, "out.png")

	log:=&bytes.Buffer{}
	c:=NewContext(log, hillas.ASTRIGeometry())

	seq:=NewOpSequence(
		NewOpLoad(0, fileName),
		NewOpTailcut(10, 5, true),
		NewOpAssess(assess.MethodAll),
		NewOpHillas(),
		NewOpRender(figName),
	)
	promises, err:=seq.MakePromises(nil, c)
	if err!=nil { t.Fatalf("building pipeline: %s", err) }
	results, err:=MaterializeAll(promises, c.MaxThreads, false)
	if err!=nil { t.Fatalf("empty reference stopped the pipeline: %s", err) }
	if len(results)!=1 { t.Fatalf("expected 1 result, got %d", len(results)) }

	r:=results[0]
	if r.CleanedParams==nil || r.CleanedHist==nil {
		t.Errorf("cleaned image distribution missing")
	}
	if r.RefParams!=nil || r.RefHist!=nil {
		t.Errorf("got a reference ellipse from an all-zero image")
	}
	if !strings.Contains(log.String(), "Assessment failed") {
		t.Errorf("assessment failure not logged:\n%s", log.String())
	}
	if !strings.Contains(log.String(), "No ellipse for reference image") {
		t.Errorf("degenerate reference fit not logged:\n%s", log.String())
	}
	// the figure renders without scores and without the reference histogram
	if _, err:=os.Stat(figName); err!=nil {
		t.Fatalf("expected figure file %s: %s", figName, err)
	}
}

func TestOpLoadMany(t *testing.T) {
	dir:=t.TempDir()
	writeTestBenchmark(t, dir)

	log:=&bytes.Buffer{}
	c:=NewContext(log, hillas.ASTRIGeometry())

	// a directory argument expands to the FITS files inside it
	promises, err:=NewOpLoadMany([]string{dir}).MakePromises(nil, c)
	if err!=nil { t.Fatalf("loadMany failed: %s", err) }
	if len(promises)!=1 { t.Fatalf("expected 1 promise, got %d", len(promises)) }

	results, err:=MaterializeAll(promises, c.MaxThreads, false)
	if err!=nil { t.Fatalf("materializing: %s", err) }
	if len(results)!=1 || results[0].Bench==nil {
		t.Fatalf("benchmark not loaded")
	}
}

func TestOpLoadManyNoMatches(t *testing.T) {
	log:=&bytes.Buffer{}
	c:=NewContext(log, hillas.ASTRIGeometry())
	if _, err:=NewOpLoadMany([]string{"no-such-file-*.fits"}).MakePromises(nil, c); err==nil {
		t.Errorf("expected error for empty pattern match")
	}
}

func TestSequenceJSONRoundTrip(t *testing.T) {
	seq:=NewOpSequence(
		NewOpLoadMany([]string{"data/*.fits"}),
		NewOpTailcut(12, 6, true),
		NewOpAssess(assess.MethodMSE),
		NewOpHillas(),
		NewOpRender("out%d.pdf"),
	)
	data, err:=json.Marshal(seq)
	if err!=nil { t.Fatalf("marshal: %s", err) }

	restored:=NewOpSequenceDefault()
	if err:=json.Unmarshal(data, restored); err!=nil { t.Fatalf("unmarshal: %s", err) }
	if len(restored.Steps)!=len(seq.Steps) {
		t.Fatalf("expected %d steps, got %d", len(seq.Steps), len(restored.Steps))
	}
	for i:=range seq.Steps {
		if restored.Steps[i].GetType()!=seq.Steps[i].GetType() {
			t.Errorf("step %d type %s, expected %s", i, restored.Steps[i].GetType(), seq.Steps[i].GetType())
		}
	}
	tc, ok:=restored.Steps[1].(*OpTailcut)
	if !ok { t.Fatalf("step 1 is %T", restored.Steps[1]) }
	if tc.Tailcut.HighThreshold!=12 || tc.Tailcut.LowThreshold!=6 {
		t.Errorf("tailcut thresholds lost: %v", tc.Tailcut)
	}
}

func TestOpForEachJSONRoundTrip(t *testing.T) {
	seq:=NewOpSequence(NewOpForEach(NewOpTailcut(12, 6, true)))
	data, err:=json.Marshal(seq)
	if err!=nil { t.Fatalf("marshal: %s", err) }

	restored:=NewOpSequenceDefault()
	if err:=json.Unmarshal(data, restored); err!=nil { t.Fatalf("unmarshal: %s", err) }
	if len(restored.Steps)!=1 { t.Fatalf("expected 1 step, got %d", len(restored.Steps)) }
	fe, ok:=restored.Steps[0].(*OpForEach)
	if !ok { t.Fatalf("step 0 is %T", restored.Steps[0]) }
	tc, ok:=fe.Operation.(*OpTailcut)
	if !ok { t.Fatalf("embedded operation is %T", fe.Operation) }
	if tc.Tailcut.HighThreshold!=12 || tc.Tailcut.LowThreshold!=6 || !tc.Tailcut.KillIsolatedPixels {
		t.Errorf("tailcut settings lost: %v", tc.Tailcut)
	}
}

func TestOpForEachRejectsUnknownOperation(t *testing.T) {
	raw:=`{"type":"forEach","active":true,"operation":{"type":"noSuchOp"}}`
	op:=NewOpForEachDefault()
	if err:=json.Unmarshal([]byte(raw), op); err==nil {
		t.Errorf("expected error for unknown operation type")
	}
}

func TestOpForEachRunsDecodedPipeline(t *testing.T) {
	fileName:=writeTestBenchmark(t, t.TempDir())

	log:=&bytes.Buffer{}
	c:=NewContext(log, hillas.ASTRIGeometry())

	raw:=fmt.Sprintf(`{"type":"seq","active":true,"steps":[`+
		`{"type":"load","active":true,"id":0,"fileName":%q},`+
		`{"type":"forEach","active":true,"operation":`+
		`{"type":"tailcut","active":true,"tailcut":{"highThreshold":10,"lowThreshold":5,"killIsolatedPixels":true}}}]}`,
		fileName)
	seq:=NewOpSequenceDefault()
	if err:=json.Unmarshal([]byte(raw), seq); err!=nil { t.Fatalf("unmarshal: %s", err) }

	promises, err:=seq.MakePromises(nil, c)
	if err!=nil { t.Fatalf("building pipeline: %s", err) }
	results, err:=MaterializeAll(promises, c.MaxThreads, false)
	if err!=nil { t.Fatalf("running pipeline: %s", err) }
	if len(results)!=1 || results[0].Cleaned==nil {
		t.Fatalf("forEach did not clean the benchmark")
	}
	if results[0].CleanerName!="tailcut" {
		t.Errorf("cleaner %s, expected tailcut", results[0].CleanerName)
	}
}

func TestMaterializeAllCollectsErrors(t *testing.T) {
	good:=func() (*Result, error) { return &Result{}, nil }
	bad:=func() (*Result, error) { return nil, errTest }
	results, err:=MaterializeAll([]Promise{good, bad, good}, 2, false)
	if err==nil { t.Fatalf("expected error from failing promise") }
	if len(results)!=2 { t.Errorf("expected 2 surviving results, got %d", len(results)) }
}

var errTest=&testError{}

type testError struct{}

func (e *testError) Error() string { return "test error" }
