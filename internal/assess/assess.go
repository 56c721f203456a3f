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


// Package assess scores cleaned images against their noise-free
// reference
package assess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
)

// Score methods
const (
	MethodAll         = "all"
	MethodMSE         = "mse"
	MethodNRMSE       = "nrmse"
	MethodCorrelation = "correlation"
	MethodShape       = "shape"
)

var ErrEmptyReference=errors.New("assess: reference image is empty")

// Error wraps an assessment failure and keeps the scores that were
// computed before it occurred, so batch runs can still record them
type Error struct {
	Method string
	Scores []float64
	Names  []string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("assessment method %s failed: %s", e.Method, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AssessImageCleaning scores a cleaned image against its reference
// with the given method and returns the scores with their names.
// The input image is carried along for methods that normalize
// against the raw signal
func AssessImageCleaning(input, cleaned, reference *fits.Image, method string) ([]float64, []string, error) {
	if err:=checkShapes(input, cleaned, reference); err!=nil { return nil, nil, err }
	refSum:=0.0
	for _,v:=range reference.Data {
		refSum+=float64(v)
	}
	if refSum==0 {
		return nil, nil, &Error{Method: method, Err: ErrEmptyReference}
	}

	switch method {
	case MethodMSE:
		return []float64{mse(cleaned, reference)}, []string{"mse"}, nil
	case MethodNRMSE:
		return []float64{nrmse(cleaned, reference)}, []string{"nrmse"}, nil
	case MethodCorrelation:
		return []float64{correlation(cleaned, reference)}, []string{"correlation"}, nil
	case MethodShape:
		return shapeScores(cleaned, reference, method)
	case MethodAll:
		scores, names, err:=shapeScores(cleaned, reference, method)
		scores=append(scores, mse(cleaned, reference), nrmse(cleaned, reference), correlation(cleaned, reference))
		names=append(names, "mse", "nrmse", "correlation")
		if err!=nil {
			var ae *Error
			if errors.As(err, &ae) { ae.Scores, ae.Names=scores, names }
			return scores, names, err
		}
		return scores, names, nil
	default:
		return nil, nil, fmt.Errorf("unknown assessment method '%s'", method)
	}
}

func checkShapes(input, cleaned, reference *fits.Image) error {
	for _,img:=range []*fits.Image{input, cleaned, reference} {
		if !img.Is2D() {
			return fmt.Errorf("%d: expected 2D image, got %s", img.ID, img.DimensionsToString())
		}
	}
	if !fits.EqualInt32Slice(cleaned.Naxisn, reference.Naxisn) ||
		!fits.EqualInt32Slice(input.Naxisn, reference.Naxisn) {
		return fmt.Errorf("image shapes differ: input %s cleaned %s reference %s",
			input.DimensionsToString(), cleaned.DimensionsToString(), reference.DimensionsToString())
	}
	return nil
}

func mse(cleaned, reference *fits.Image) float64 {
	sum:=0.0
	for i,v:=range cleaned.Data {
		d:=float64(v)-float64(reference.Data[i])
		sum+=d*d
	}
	return sum/float64(len(cleaned.Data))
}

// Root mean squared error normalized by the reference dynamic range
func nrmse(cleaned, reference *fits.Image) float64 {
	refMin, refMax:=math.Inf(1), math.Inf(-1)
	for _,v:=range reference.Data {
		f:=float64(v)
		if f<refMin { refMin=f }
		if f>refMax { refMax=f }
	}
	if refMax==refMin { return math.Inf(1) }
	return math.Sqrt(mse(cleaned, reference))/(refMax-refMin)
}

func correlation(cleaned, reference *fits.Image) float64 {
	a:=make([]float64, len(cleaned.Data))
	b:=make([]float64, len(reference.Data))
	for i:=range cleaned.Data {
		a[i]=float64(cleaned.Data[i])
		b[i]=float64(reference.Data[i])
	}
	return stat.Correlation(a, b, nil)
}

// Shape and energy scores from the Hillas ellipses of both images.
// The shape score compares relative centroid, orientation and axis
// differences; the energy score compares the total intensities
func shapeScores(cleaned, reference *fits.Image, method string) ([]float64, []string, error) {
	geom:=hillas.NewGeometry(reference.Width(), reference.Height(),
		-1, 1, -1, 1)

	refParams, err:=hillas.Fit(reference, geom)
	if err!=nil {
		return nil, nil, &Error{Method: method, Err: err}
	}
	cleanParams, err:=hillas.Fit(cleaned, geom)
	if err!=nil {
		return nil, nil, &Error{Method: method, Err: err}
	}

	deltaPsi:=math.Abs(normalizeAngle(cleanParams.Psi-refParams.Psi))
	eShape:=math.Sqrt(
		sq(cleanParams.CenX-refParams.CenX)+
			sq(cleanParams.CenY-refParams.CenY)+
			sq(cleanParams.Length-refParams.Length)+
			sq(cleanParams.Width-refParams.Width)+
			sq(deltaPsi/math.Pi))
	eEnergy:=math.Abs(cleanParams.Size-refParams.Size)/refParams.Size

	return []float64{eShape, eEnergy}, []string{"e_shape", "e_energy"}, nil
}

func sq(x float64) float64 { return x*x }

// Maps an angle difference into (-pi/2, pi/2], the axis orientation
// being defined modulo pi
func normalizeAngle(a float64) float64 {
	for a>math.Pi/2 { a-=math.Pi }
	for a<=-math.Pi/2 { a+=math.Pi }
	return a
}
