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

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
)

// An image cleaning algorithm. Implementations are pure functions over
// the input array and safe to call concurrently on independent images
type Cleaner interface {
	Name() string
	Clean(img *fits.Image) (*fits.Image, error)
}

// Checks that the image is a 2D array, the common precondition
// of all cleaning algorithms
func require2D(img *fits.Image) error {
	if !img.Is2D() {
		return fmt.Errorf("%d: cleaning requires a 2D array, got %s", img.ID, img.DimensionsToString())
	}
	return nil
}

// Zeroes every positive pixel with no positive pixel among its eight
// neighbors. Operates in place, returns the number of pixels removed
func KillIsolatedPixels(data []float32, width int32) (removed int32) {
	height:=int32(len(data))/width
	orig:=make([]float32, len(data))
	copy(orig, data)

	for y:=int32(0); y<height; y++ {
		for x:=int32(0); x<width; x++ {
			index:=y*width+x
			if orig[index]<=0 { continue }

			hasNeighbor:=false
			for dy:=int32(-1); dy<=1 && !hasNeighbor; dy++ {
				for dx:=int32(-1); dx<=1; dx++ {
					if dx==0 && dy==0 { continue }
					nx, ny:=x+dx, y+dy
					if nx<0 || nx>=width || ny<0 || ny>=height { continue }
					if orig[ny*width+nx]>0 {
						hasNeighbor=true
						break
					}
				}
			}
			if !hasNeighbor {
				data[index]=0
				removed++
			}
		}
	}
	return removed
}
