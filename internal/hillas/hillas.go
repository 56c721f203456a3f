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


// Package hillas fits shower image ellipses and derives per-pixel
// geometry from them
package hillas

import (
	"errors"
	"fmt"
	"math"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
)

var (
	// ErrDegenerate is returned when an image has no positive intensity
	// to fit an ellipse to
	ErrDegenerate=errors.New("hillas: image intensity is zero")

	// ErrUndefinedOrientation is returned when the image is circularly
	// symmetric and the major axis direction is arbitrary
	ErrUndefinedOrientation=errors.New("hillas: orientation undefined for symmetric image")
)

// Camera pixel grid in physical coordinates. X and Y hold the center
// position of every pixel in meters, in the same row-major order as
// the image data
type Geometry struct {
	Width, Height int32
	X, Y          []float64
}

// astriHalfSize is the distance from the camera center to the outer
// pixel centers of the ASTRI camera, in meters
const astriHalfSize=0.142555996776

// ASTRIGeometry returns the 40x40 pixel grid of the ASTRI camera
func ASTRIGeometry() *Geometry {
	return NewGeometry(40, 40, -astriHalfSize, astriHalfSize, -astriHalfSize, astriHalfSize)
}

// NewGeometry builds a regular grid of width x height pixel centers
// spanning the given coordinate ranges inclusively
func NewGeometry(width, height int32, xMin, xMax, yMin, yMax float64) *Geometry {
	g:=&Geometry{
		Width:  width,
		Height: height,
		X:      make([]float64, width*height),
		Y:      make([]float64, width*height),
	}
	for y:=int32(0); y<height; y++ {
		yc:=yMin
		if height>1 { yc=yMin+float64(y)*(yMax-yMin)/float64(height-1) }
		for x:=int32(0); x<width; x++ {
			xc:=xMin
			if width>1 { xc=xMin+float64(x)*(xMax-xMin)/float64(width-1) }
			g.X[y*width+x]=xc
			g.Y[y*width+x]=yc
		}
	}
	return g
}

// Matches checks that the geometry covers the given image
func (g *Geometry) Matches(img *fits.Image) error {
	if !img.Is2D() {
		return fmt.Errorf("%d: expected 2D image, got %s", img.ID, img.DimensionsToString())
	}
	if img.Width()!=g.Width || img.Height()!=g.Height {
		return fmt.Errorf("%d: image is %dx%d but geometry is %dx%d",
			img.ID, img.Width(), img.Height(), g.Width, g.Height)
	}
	return nil
}

// Hillas ellipse parameters. Positions and axes are in the geometry's
// physical units, Psi in radians, Size in photoelectrons
type Parameters struct {
	CenX   float64 `json:"cenX"`
	CenY   float64 `json:"cenY"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Psi    float64 `json:"psi"`
	Size   float64 `json:"size"`
}

// Fit computes first and second intensity moments of the image over
// the geometry and derives the ellipse parameters from them
func Fit(img *fits.Image, geom *Geometry) (*Parameters, error) {
	if err:=geom.Matches(img); err!=nil { return nil, err }

	size:=0.0
	sumX, sumY:=0.0, 0.0
	for i,v:=range img.Data {
		w:=float64(v)
		if w<=0 { continue }
		size+=w
		sumX+=w*geom.X[i]
		sumY+=w*geom.Y[i]
	}
	if size<=0 { return nil, ErrDegenerate }

	cenX, cenY:=sumX/size, sumY/size

	sxx, syy, sxy:=0.0, 0.0, 0.0
	for i,v:=range img.Data {
		w:=float64(v)
		if w<=0 { continue }
		dx, dy:=geom.X[i]-cenX, geom.Y[i]-cenY
		sxx+=w*dx*dx
		syy+=w*dy*dy
		sxy+=w*dx*dy
	}
	sxx/=size
	syy/=size
	sxy/=size

	// eigenvalues of the covariance matrix give the squared axes
	trace:=sxx+syy
	diff:=sxx-syy
	disc:=math.Sqrt(diff*diff+4*sxy*sxy)
	if disc<=1e-8*trace {
		return nil, ErrUndefinedOrientation
	}
	lambda1:=(trace+disc)/2
	lambda2:=(trace-disc)/2
	if lambda2<0 { lambda2=0 }

	return &Parameters{
		CenX:   cenX,
		CenY:   cenY,
		Length: math.Sqrt(lambda1),
		Width:  math.Sqrt(lambda2),
		Psi:    0.5*math.Atan2(2*sxy, diff),
		Size:   size,
	}, nil
}
