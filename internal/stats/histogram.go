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


package stats

import (
	"fmt"
)

// A binned frequency distribution over a fixed value range.
// Values outside [Min,Max] are counted in Outside and excluded
// from the bins, never clamped into the first or last bin.
type Histogram struct {
	Min     float32  // Lower edge of the first bin
	Max     float32  // Upper edge of the last bin
	Counts  []int32  // Value count per bin
	Outside int64    // Number of values outside [Min,Max]
}

// Creates an empty histogram with the given number of equal-width bins
func NewHistogram(min, max float32, numBins int) *Histogram {
	if numBins<1 || max<=min { panic(fmt.Sprintf("invalid histogram: %d bins over [%g,%g]", numBins, min, max)) }
	return &Histogram{
		Min:    min,
		Max:    max,
		Counts: make([]int32, numBins),
	}
}

// Adds a single value to the histogram. The upper range limit
// falls into the last bin
func (h *Histogram) Add(v float32) {
	if v<h.Min || v>h.Max {
		h.Outside++
		return
	}
	index:=int(float64(v-h.Min)/float64(h.Max-h.Min)*float64(len(h.Counts)))
	if index==len(h.Counts) { index-- }
	h.Counts[index]++
}

// Adds all given values to the histogram
func (h *Histogram) AddAll(vs []float32) {
	for _,v:=range vs {
		h.Add(v)
	}
}

// Width of a single bin
func (h *Histogram) BinWidth() float32 {
	return (h.Max-h.Min)/float32(len(h.Counts))
}

// Center value of the bin with the given index
func (h *Histogram) BinCenter(i int) float32 {
	return h.Min+(float32(i)+0.5)*h.BinWidth()
}

// The numBins+1 bin edges, shared by all histograms of identical range and binning
func (h *Histogram) Edges() []float32 {
	edges:=make([]float32, len(h.Counts)+1)
	for i:=range edges {
		edges[i]=h.Min+float32(i)*h.BinWidth()
	}
	edges[len(edges)-1]=h.Max
	return edges
}

// Total count across all bins, excluding out-of-range values
func (h *Histogram) Total() (total int64) {
	for _,c:=range h.Counts {
		total+=int64(c)
	}
	return total
}

// Returns the index and count of the fullest bin
func (h *Histogram) Peak() (index int, count int32) {
	index, count=-1, -1
	for i,c:=range h.Counts {
		if c>count { index, count=i, c }
	}
	return index, count
}

// Pretty print the histogram to string
func (h *Histogram) String() string {
	return fmt.Sprintf("%d bins over [%g,%g], %d in range, %d outside",
		len(h.Counts), h.Min, h.Max, h.Total(), h.Outside)
}
