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
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette is a fixed list of colors for heat maps, darkest first
type Palette struct {
	colors []color.Color
}

func (p Palette) Colors() []color.Color { return p.colors }

// CameraPalette interpolates the classic black-blue-magenta-orange-white
// intensity ramp with the given number of steps
func CameraPalette(steps int) Palette {
	if steps<2 { steps=2 }
	keys:=[]colorful.Color{
		{R: 0.00, G: 0.00, B: 0.00},
		{R: 0.10, G: 0.05, B: 0.60},
		{R: 0.70, G: 0.10, B: 0.65},
		{R: 0.95, G: 0.55, B: 0.15},
		{R: 1.00, G: 1.00, B: 1.00},
	}
	colors:=make([]color.Color, steps)
	for i:=0; i<steps; i++ {
		t:=float64(i)/float64(steps-1)*float64(len(keys)-1)
		k:=int(t)
		if k>=len(keys)-1 { k=len(keys)-2 }
		colors[i]=keys[k].BlendLuv(keys[k+1], t-float64(k)).Clamped()
	}
	return Palette{colors: colors}
}
