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


package render

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/plot"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/synth"
)

func TestCameraPalette(t *testing.T) {
	p:=CameraPalette(256)
	if len(p.Colors())!=256 { t.Fatalf("expected 256 colors, got %d", len(p.Colors())) }
	first, _, _, _:=p.Colors()[0].RGBA()
	last, _, _, _:=p.Colors()[255].RGBA()
	if first>=last { t.Errorf("palette does not run dark to bright") }
}

func TestWriteFigurePNG(t *testing.T) {
	dir:=t.TempDir()
	fileName:=filepath.Join(dir, "figure.png")

	bench:=synth.Generate(synth.DefaultParams())
	geom:=hillas.ASTRIGeometry()
	hist, params, err:=hillas.PerpendicularHitDistribution(bench.Reference, geom)
	if err!=nil { t.Fatalf("hit distribution failed: %s", err) }

	fig:=&Figure{
		Input: bench.Input, Reference: bench.Reference, Cleaned: bench.Reference,
		Geometry:      geom,
		CleanedParams: params, RefParams: params,
		CleanedHist: hist, RefHist: hist,
	}
	if err:=WriteFigure(fig, fileName); err!=nil {
		t.Fatalf("figure rendering failed: %s", err)
	}
	info, err:=os.Stat(fileName)
	if err!=nil { t.Fatalf("figure file missing: %s", err) }
	if info.Size()==0 { t.Errorf("figure file is empty") }
}

func TestWriteGridRejectsUnknownFormat(t *testing.T) {
	bench:=synth.Generate(synth.DefaultParams())
	geom:=hillas.ASTRIGeometry()
	p, err:=HeatMapPlot(bench.Input, geom, "test", nil)
	if err!=nil { t.Fatalf("heat map failed: %s", err) }
	if err:=WriteGrid([][]*plot.Plot{{p}}, "figure.bmp"); err==nil {
		t.Errorf("expected error for unsupported format")
	}
}
