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
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// Tailcut cleaning: keeps core pixels above the high threshold, plus
// boundary pixels above the low threshold that touch a core pixel.
// All other pixels are zeroed
type Tailcut struct {
	HighThreshold      float32 `json:"highThreshold"`
	LowThreshold       float32 `json:"lowThreshold"`
	KillIsolatedPixels bool    `json:"killIsolatedPixels"`
}

func NewTailcut(high, low float32, killIsolated bool) *Tailcut {
	return &Tailcut{HighThreshold: high, LowThreshold: low, KillIsolatedPixels: killIsolated}
}

func (tc *Tailcut) Name() string { return "tailcut" }

func (tc *Tailcut) Clean(img *fits.Image) (*fits.Image, error) {
	if err:=require2D(img); err!=nil { return nil, err }

	width, height:=img.Width(), img.Height()
	res:=fits.NewImageFromImage(img)

	// pass 1: core pixels
	core:=make([]bool, len(img.Data))
	for i,v:=range img.Data {
		if v>=tc.HighThreshold {
			core[i]=true
			res.Data[i]=v
		}
	}

	// pass 2: boundary pixels adjacent to a core pixel
	for y:=int32(0); y<height; y++ {
		for x:=int32(0); x<width; x++ {
			index:=y*width+x
			if core[index] { continue }
			v:=img.Data[index]
			if v<tc.LowThreshold { continue }

		neighbors:
			for dy:=int32(-1); dy<=1; dy++ {
				for dx:=int32(-1); dx<=1; dx++ {
					if dx==0 && dy==0 { continue }
					nx, ny:=x+dx, y+dy
					if nx<0 || nx>=width || ny<0 || ny>=height { continue }
					if core[ny*width+nx] {
						res.Data[index]=v
						break neighbors
					}
				}
			}
		}
	}

	if tc.KillIsolatedPixels {
		KillIsolatedPixels(res.Data, width)
	}
	res.Stats=stats.CalcBasic(res.Data)
	return res, nil
}
