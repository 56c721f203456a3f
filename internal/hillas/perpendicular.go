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


package hillas

import (
	"math"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// Histogram range and binning for perpendicular hit distances, in
// meters. Distances outside the range are excluded from the counts
const (
	HitDistMin     = -0.2
	HitDistMax     = 0.2
	HitDistNumBins = 30
)

// HitDistances holds the signed distances of every camera pixel to an
// ellipse major axis. Dl is the longitudinal coordinate along the
// axis, Dp the perpendicular one; only Dp feeds the distribution
type HitDistances struct {
	Dl, Dp []float64
}

// AxisDistances computes, for every pixel center of the geometry, its
// signed longitudinal and perpendicular distance to the major axis of
// the given ellipse. The axis is anchored at the ellipse centroid and
// runs along Psi rotated by a quarter turn, which matches the axis
// convention of the reference analysis
func AxisDistances(params *Parameters, geom *Geometry) *HitDistances {
	p1x, p1y:=params.CenX, params.CenY
	p2x:=p1x+params.Length*math.Cos(params.Psi+math.Pi/2)
	p2y:=p1y+params.Length*math.Sin(params.Psi+math.Pi/2)

	tx, ty:=normalise(p1x-p2x, p1y-p2y)

	hd:=&HitDistances{
		Dl: make([]float64, len(geom.X)),
		Dp: make([]float64, len(geom.X)),
	}
	for i:=range geom.X {
		dx, dy:=p1x-geom.X[i], p1y-geom.Y[i]
		hd.Dl[i]=dx*tx+dy*ty
		hd.Dp[i]=dx*ty-dy*tx
	}
	return hd
}

func normalise(x, y float64) (float64, float64) {
	norm:=math.Sqrt(x*x+y*y)
	if norm==0 { return 0, 0 }
	return x/norm, y/norm
}

// PerpendicularHitDistribution fits an ellipse to the image and bins
// the perpendicular distance of every camera pixel to its major axis.
// All pixels of the grid contribute one count each, regardless of
// their intensity
func PerpendicularHitDistribution(img *fits.Image, geom *Geometry) (*stats.Histogram, *Parameters, error) {
	params, err:=Fit(img, geom)
	if err!=nil { return nil, nil, err }

	hd:=AxisDistances(params, geom)
	hist:=stats.NewHistogram(HitDistMin, HitDistMax, HitDistNumBins)
	for _,dp:=range hd.Dp {
		hist.Add(float32(dp))
	}
	return hist, params, nil
}
