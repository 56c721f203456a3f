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
	"math"
)

// Basic statistics on image data arrays
type Basic struct {
	Min    float32  // Minimum
	Max    float32  // Maximum
	Mean   float32  // Mean (average)
	StdDev float32  // Standard deviation (norm 2, sigma)
	Sum    float64  // Sum of all values
}

// Pretty print basic stats to string
func (s *Basic) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Sum %.6g",
		s.Min, s.Max, s.Mean, s.StdDev, s.Sum)
}

// Calculate basic statistics for a data array
func CalcBasic(data []float32) (s *Basic) {
	s=&Basic{}
	if len(data)==0 { return s }
	s.Min, s.Max=data[0], data[0]
	sum:=float64(0)
	for _,d:=range data {
		if d<s.Min { s.Min=d }
		if d>s.Max { s.Max=d }
		sum+=float64(d)
	}
	s.Sum=sum
	s.Mean=float32(sum/float64(len(data)))

	variance:=float64(0)
	for _,d:=range data {
		diff:=float64(d)-float64(s.Mean)
		variance+=diff*diff
	}
	variance/=float64(len(data))
	s.StdDev=float32(math.Sqrt(variance))
	return s
}

// Median of the data array. Does not modify the argument
func Median(data []float32) float32 {
	if len(data)==0 { return float32(math.NaN()) }
	tmp:=make([]float32, len(data))
	copy(tmp, data)
	return qSelectMedian(tmp)
}

// Median absolute deviation from the given location, scaled to be
// a consistent estimator of the standard deviation for normal data
func MAD(data []float32, location float32) float32 {
	if len(data)==0 { return float32(math.NaN()) }
	devs:=make([]float32, len(data))
	for i,d:=range data {
		dev:=d-location
		if dev<0 { dev=-dev }
		devs[i]=dev
	}
	return 1.4826*qSelectMedian(devs)
}

// Quickselect-based median. Modifies the data array
func qSelectMedian(a []float32) float32 {
	left, right:=0, len(a)-1
	k:=len(a)/2
	for left<right {
		pivot:=a[(left+right)>>1]
		i, j:=left, right
		for i<=j {
			for a[i]<pivot { i++ }
			for a[j]>pivot { j-- }
			if i<=j {
				a[i], a[j]=a[j], a[i]
				i++
				j--
			}
		}
		if j<k { left=i }
		if k<i { right=j }
	}
	if len(a)&1==1 { return a[k] }
	lower:=a[k-1]
	for _,v:=range a[:k] {
		if v>lower { lower=v }
	}
	return 0.5*(lower+a[k])
}
