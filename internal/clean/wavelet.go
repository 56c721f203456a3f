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


package clean

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// Structured wavelet filter options. These replace the historical
// mr_filter-style free text string; ParseWaveletOptions still accepts
// that format for compatibility with existing scripts
type WaveletOptions struct {
	NumScales         int     `json:"numScales"`         // number of wavelet planes (-n)
	NSigma            float32 `json:"nSigma"`            // detection threshold in noise sigmas (-s)
	SuppressLastScale bool    `json:"suppressLastScale"` // drop the residual smooth plane (-K)
	DetectOnlyPositive bool   `json:"detectOnlyPositive"` // keep positive coefficients only (-p)
}

func DefaultWaveletOptions() WaveletOptions {
	return WaveletOptions{
		NumScales:         4,
		NSigma:            3,
		SuppressLastScale: true,
		DetectOnlyPositive: true,
	}
}

// Parses an mr_filter-style option string such as "-K -k -C1 -m3 -s3 -n4".
// Unknown switches that only select the historical noise model or
// coefficient detection method (-C, -m) are accepted and ignored.
// The -k switch is reported via the second return value
func ParseWaveletOptions(raw string) (opts WaveletOptions, killIsolated bool, err error) {
	opts=DefaultWaveletOptions()
	opts.SuppressLastScale=false
	for _,field:=range strings.Fields(raw) {
		if len(field)<2 || field[0]!='-' {
			return opts, false, fmt.Errorf("malformed wavelet option '%s'", field)
		}
		switch field[1] {
		case 'K':
			opts.SuppressLastScale=true
		case 'k':
			killIsolated=true
		case 'p':
			opts.DetectOnlyPositive=true
		case 'n':
			n, err:=strconv.Atoi(field[2:])
			if err!=nil || n<2 { return opts, false, fmt.Errorf("invalid scale count in '%s'", field) }
			opts.NumScales=n
		case 's':
			s, err:=strconv.ParseFloat(field[2:], 32)
			if err!=nil || s<=0 { return opts, false, fmt.Errorf("invalid sigma in '%s'", field) }
			opts.NSigma=float32(s)
		case 'C', 'm':
			// historical selectors, single implementation here
		default:
			return opts, false, fmt.Errorf("unknown wavelet option '%s'", field)
		}
	}
	return opts, killIsolated, nil
}

// Wavelet cleaning: a starlet (B3-spline a trous) transform with
// hard thresholding of the detail coefficients at NSigma times the
// per-plane noise estimate
type Wavelet struct {
	Options            WaveletOptions `json:"options"`
	KillIsolatedPixels bool           `json:"killIsolatedPixels"`
}

func NewWavelet(opts WaveletOptions, killIsolated bool) *Wavelet {
	return &Wavelet{Options: opts, KillIsolatedPixels: killIsolated}
}

func (wt *Wavelet) Name() string { return "wavelets" }

func (wt *Wavelet) Clean(img *fits.Image) (*fits.Image, error) {
	if err:=require2D(img); err!=nil { return nil, err }
	if wt.Options.NumScales<2 {
		return nil, fmt.Errorf("%d: wavelet cleaning requires at least 2 scales, got %d", img.ID, wt.Options.NumScales)
	}

	width, height:=img.Width(), img.Height()
	res:=fits.NewImageFromImage(img)

	smooth:=make([]float32, len(img.Data))
	copy(smooth, img.Data)
	next:=make([]float32, len(img.Data))
	plane:=make([]float32, len(img.Data))

	for scale:=0; scale<wt.Options.NumScales-1; scale++ {
		smoothB3Spline(smooth, next, width, height, int32(1)<<uint(scale))

		// detail coefficients at this scale
		for i:=range plane {
			plane[i]=smooth[i]-next[i]
		}

		// hard threshold against the plane noise estimate
		sigma:=planeNoiseSigma(plane)
		threshold:=wt.Options.NSigma*sigma
		for i,w:=range plane {
			if w>=threshold || (!wt.Options.DetectOnlyPositive && -w>=threshold) {
				res.Data[i]+=w
			}
		}

		smooth, next=next, smooth
	}

	if !wt.Options.SuppressLastScale {
		for i,s:=range smooth {
			res.Data[i]+=s
		}
	}

	if wt.Options.DetectOnlyPositive {
		for i,v:=range res.Data {
			if v<0 { res.Data[i]=0 }
		}
	}

	if wt.KillIsolatedPixels {
		KillIsolatedPixels(res.Data, width)
	}
	res.Stats=stats.CalcBasic(res.Data)
	return res, nil
}

// Robust per-plane noise sigma from the median absolute deviation
func planeNoiseSigma(plane []float32) float32 {
	med:=stats.Median(plane)
	return stats.MAD(plane, med)
}

// One a trous smoothing step with the B3 spline kernel
// (1/16, 1/4, 3/8, 1/4, 1/16) at the given hole size, applied
// separably in x then y. Borders are handled by mirroring
func smoothB3Spline(src, dst []float32, width, height, step int32) {
	kernel:=[5]float32{1.0/16, 1.0/4, 3.0/8, 1.0/4, 1.0/16}
	tmp:=make([]float32, len(src))

	for y:=int32(0); y<height; y++ {
		row:=y*width
		for x:=int32(0); x<width; x++ {
			sum:=float32(0)
			for k:=int32(-2); k<=2; k++ {
				xx:=mirror(x+k*step, width)
				sum+=kernel[k+2]*src[row+xx]
			}
			tmp[row+x]=sum
		}
	}
	for y:=int32(0); y<height; y++ {
		for x:=int32(0); x<width; x++ {
			sum:=float32(0)
			for k:=int32(-2); k<=2; k++ {
				yy:=mirror(y+k*step, height)
				sum+=kernel[k+2]*tmp[yy*width+x]
			}
			dst[y*width+x]=sum
		}
	}
}

// Mirrors an index into [0,n)
func mirror(i, n int32) int32 {
	for i<0 || i>=n {
		if i<0 { i=-i-1 }
		if i>=n { i=2*n-i-1 }
	}
	return i
}
