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
	"gonum.org/v1/plot"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// Everything that goes into a benchmark figure. Ellipse parameters
// and histograms are optional and skipped when nil
type Figure struct {
	Input, Reference, Cleaned *fits.Image
	Geometry                  *hillas.Geometry
	CleanedParams, RefParams  *hillas.Parameters
	CleanedHist, RefHist      *stats.Histogram
}

// WriteFigure renders the standard benchmark figure: the three camera
// images in the top row, the perpendicular hit distance histograms of
// the cleaned and reference images below
func WriteFigure(fig *Figure, fileName string) error {
	input, err:=HeatMapPlot(fig.Input, fig.Geometry, "Input image", nil)
	if err!=nil { return err }
	reference, err:=HeatMapPlot(fig.Reference, fig.Geometry, "Reference image", fig.RefParams)
	if err!=nil { return err }
	cleaned, err:=HeatMapPlot(fig.Cleaned, fig.Geometry, "Cleaned image", fig.CleanedParams)
	if err!=nil { return err }

	plots:=[][]*plot.Plot{{input, reference, cleaned}}

	var histRow []*plot.Plot
	if fig.CleanedHist!=nil {
		h, err:=HistogramPlot(fig.CleanedHist, "Hit distances, cleaned", "perpendicular distance (m)")
		if err!=nil { return err }
		histRow=append(histRow, h)
	}
	if fig.RefHist!=nil {
		h, err:=HistogramPlot(fig.RefHist, "Hit distances, reference", "perpendicular distance (m)")
		if err!=nil { return err }
		histRow=append(histRow, h)
	}
	if len(histRow)>0 { plots=append(plots, histRow) }

	return WriteGrid(plots, fileName)
}
