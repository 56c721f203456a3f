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


// Package render draws benchmark figures with camera heat maps,
// fitted ellipses and hit distance histograms
package render

import (
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"
	"strings"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// cameraGrid adapts a 2D image on a pixel geometry to the heat map
// grid interface
type cameraGrid struct {
	img  *fits.Image
	geom *hillas.Geometry
}

func (g cameraGrid) Dims() (int, int) { return int(g.geom.Width), int(g.geom.Height) }
func (g cameraGrid) Z(c, r int) float64 { return float64(g.img.Data[int32(r)*g.geom.Width+int32(c)]) }
func (g cameraGrid) X(c int) float64 { return g.geom.X[c] }
func (g cameraGrid) Y(r int) float64 { return g.geom.Y[int32(r)*g.geom.Width] }

func newPlot(title string) *plot.Plot {
	p:=plot.New()
	for _,style:=range []*draw.TextStyle{&p.Title.TextStyle, &p.X.Label.TextStyle, &p.Y.Label.TextStyle} {
		style.Font.Typeface="Liberation"
		style.Font.Variant="Sans"
		style.Font.Size=vg.Points(11)
	}
	for _,style:=range []*draw.TextStyle{&p.X.Tick.Label, &p.Y.Tick.Label} {
		style.Font.Typeface="Liberation"
		style.Font.Variant="Sans"
		style.Font.Size=vg.Points(9)
	}
	p.Title.Text=title
	return p
}

// HeatMapPlot draws an image on its camera geometry. If params is
// non-nil, the fitted ellipse and its major axis are drawn on top
func HeatMapPlot(img *fits.Image, geom *hillas.Geometry, title string, params *hillas.Parameters) (*plot.Plot, error) {
	if err:=geom.Matches(img); err!=nil { return nil, err }

	p:=newPlot(title)
	if params!=nil {
		// display-only unit conversion, the fit itself stays in radians
		p.Title.Text=fmt.Sprintf("%s (psi %.1f deg)", title, params.Psi*180/math.Pi)
	}
	p.X.Label.Text="x (m)"
	p.Y.Label.Text="y (m)"

	hm:=plotter.NewHeatMap(cameraGrid{img: img, geom: geom}, CameraPalette(256))
	p.Add(hm)

	if params!=nil {
		ellipse, err:=ellipseOutline(params)
		if err!=nil { return nil, err }
		ellipse.Color=color.RGBA{R: 255, A: 255}
		ellipse.Width=vg.Points(1.5)
		p.Add(ellipse)

		axis, err:=majorAxisLine(params, geom)
		if err!=nil { return nil, err }
		axis.Color=color.RGBA{R: 255, A: 255}
		axis.Dashes=[]vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(axis)
	}
	return p, nil
}

func ellipseOutline(params *hillas.Parameters) (*plotter.Line, error) {
	const segments=90
	cosPsi, sinPsi:=math.Cos(params.Psi), math.Sin(params.Psi)
	pts:=make(plotter.XYs, segments+1)
	for i:=0; i<=segments; i++ {
		t:=2*math.Pi*float64(i)/segments
		u:=params.Length*math.Cos(t)
		v:=params.Width*math.Sin(t)
		pts[i].X=params.CenX+u*cosPsi-v*sinPsi
		pts[i].Y=params.CenY+u*sinPsi+v*cosPsi
	}
	return plotter.NewLine(pts)
}

func majorAxisLine(params *hillas.Parameters, geom *hillas.Geometry) (*plotter.Line, error) {
	// extend the axis across the full camera
	half:=math.Hypot(geom.X[len(geom.X)-1]-geom.X[0], geom.Y[len(geom.Y)-1]-geom.Y[0])/2
	cosPsi, sinPsi:=math.Cos(params.Psi), math.Sin(params.Psi)
	pts:=plotter.XYs{
		{X: params.CenX-half*cosPsi, Y: params.CenY-half*sinPsi},
		{X: params.CenX+half*cosPsi, Y: params.CenY+half*sinPsi},
	}
	return plotter.NewLine(pts)
}

// HistogramPlot draws a fixed-range histogram as a step outline
func HistogramPlot(hist *stats.Histogram, title, xLabel string) (*plot.Plot, error) {
	p:=newPlot(title)
	p.X.Label.Text=xLabel
	p.Y.Label.Text="count"

	edges:=hist.Edges()
	pts:=make(plotter.XYs, 0, 2*len(hist.Counts)+2)
	pts=append(pts, plotter.XY{X: float64(edges[0]), Y: 0})
	for i,c:=range hist.Counts {
		pts=append(pts,
			plotter.XY{X: float64(edges[i]), Y: float64(c)},
			plotter.XY{X: float64(edges[i+1]), Y: float64(c)})
	}
	pts=append(pts, plotter.XY{X: float64(edges[len(edges)-1]), Y: 0})

	line, err:=plotter.NewLine(pts)
	if err!=nil { return nil, err }
	line.Color=color.RGBA{B: 255, A: 255}
	p.Add(line, plotter.NewGrid())
	p.X.Min, p.X.Max=float64(hist.Min), float64(hist.Max)
	return p, nil
}

// WriteGrid renders a grid of plots side by side into a PNG or PDF
// file, chosen by the file extension
func WriteGrid(plots [][]*plot.Plot, fileName string) error {
	rows:=len(plots)
	if rows==0 { return fmt.Errorf("no plots to render") }
	cols:=0
	for _,row:=range plots {
		if len(row)>cols { cols=len(row) }
	}
	for i,row:=range plots {
		for len(row)<cols { row=append(row, nil) }
		plots[i]=row
	}

	width:=vg.Length(cols)*5*vg.Inch
	height:=vg.Length(rows)*4*vg.Inch

	lower:=strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".png"):
		c:=vgimg.New(width, height)
		drawGrid(plots, draw.New(c), rows, cols)
		f, err:=os.Create(fileName)
		if err!=nil { return err }
		defer f.Close()
		return png.Encode(f, c.Image())
	case strings.HasSuffix(lower, ".pdf"):
		c:=vgpdf.New(width, height)
		drawGrid(plots, draw.New(c), rows, cols)
		f, err:=os.Create(fileName)
		if err!=nil { return err }
		defer f.Close()
		_, err=c.WriteTo(f)
		return err
	}
	return fmt.Errorf("unsupported figure format '%s', expected .png or .pdf", fileName)
}

func drawGrid(plots [][]*plot.Plot, dc draw.Canvas, rows, cols int) {
	tiles:=draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Points(5), PadY: vg.Points(5),
		PadTop: vg.Points(5), PadBottom: vg.Points(5),
		PadLeft: vg.Points(5), PadRight: vg.Points(5),
	}
	canvases:=plot.Align(plots, tiles, dc)
	for r:=range plots {
		for c:=range plots[r] {
			if plots[r][c]!=nil {
				plots[r][c].Draw(canvases[r][c])
			}
		}
	}
}
