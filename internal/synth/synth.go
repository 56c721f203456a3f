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


// Package synth generates synthetic shower benchmark images for
// testing and demonstration
package synth

import (
	"math"

	"github.com/valyala/fastrand"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// Shower generation parameters. The shower is an elongated Gaussian
// in pixel coordinates, the noise a uniform night sky background
type Params struct {
	Width, Height int32
	CenX, CenY    float32 // shower centroid in pixels
	SigmaMajor    float32 // major axis sigma in pixels
	SigmaMinor    float32 // minor axis sigma in pixels
	Psi           float32 // orientation in radians
	Amplitude     float32 // peak intensity in photoelectrons
	NoiseLevel    float32 // mean background per pixel
	Seed          uint32
}

func DefaultParams() Params {
	return Params{
		Width: 40, Height: 40,
		CenX: 19.5, CenY: 19.5,
		SigmaMajor: 6, SigmaMinor: 1.5,
		Psi:       math.Pi/4,
		Amplitude: 60,
		NoiseLevel: 2,
		Seed:      1,
	}
}

// Generate builds a benchmark with a noise-free reference shower and
// an input image with night sky background added on top of it
func Generate(p Params) *fits.Benchmark {
	n:=p.Width*p.Height
	refData:=make([]float32, n)
	inData:=make([]float32, n)

	cosPsi:=float32(math.Cos(float64(p.Psi)))
	sinPsi:=float32(math.Sin(float64(p.Psi)))

	rng:=fastrand.RNG{}
	rng.Seed(p.Seed)

	for y:=int32(0); y<p.Height; y++ {
		for x:=int32(0); x<p.Width; x++ {
			dx:=float32(x)-p.CenX
			dy:=float32(y)-p.CenY
			// rotate into the shower frame
			u:=dx*cosPsi+dy*sinPsi
			v:=-dx*sinPsi+dy*cosPsi
			arg:=u*u/(2*p.SigmaMajor*p.SigmaMajor)+v*v/(2*p.SigmaMinor*p.SigmaMinor)
			signal:=p.Amplitude*float32(math.Exp(-float64(arg)))
			if signal<0.01 { signal=0 }

			i:=y*p.Width+x
			refData[i]=signal
			inData[i]=signal+noise(&rng, p.NoiseLevel)
		}
	}

	input:=fits.NewImageFromNaxisn([]int32{p.Width, p.Height}, inData)
	input.ExtName=fits.InputImageExt
	input.Stats=stats.CalcBasic(inData)
	reference:=fits.NewImageFromNaxisn([]int32{p.Width, p.Height}, refData)
	reference.ExtName=fits.ReferenceImageExt
	reference.Stats=stats.CalcBasic(refData)

	return &fits.Benchmark{
		Input:     input,
		Reference: reference,
		Metadata: fits.Metadata{
			"SIM_PSI": p.Psi,
			"SIM_AMP": p.Amplitude,
			"SIM_NSB": p.NoiseLevel,
		},
	}
}

// Approximate Poisson background sample for small means, as the sum
// of twelve uniforms shifted to the requested mean and clipped at 0
func noise(rng *fastrand.RNG, level float32) float32 {
	if level<=0 { return 0 }
	sum:=float32(0)
	for i:=0; i<12; i++ {
		sum+=float32(rng.Uint32n(1000))/1000.0
	}
	v:=level+float32(math.Sqrt(float64(level)))*(sum-6)
	if v<0 { return 0 }
	return v
}
