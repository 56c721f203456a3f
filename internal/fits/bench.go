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


package fits

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// HDU names of the two image planes in a cleaning benchmark file
const (
	InputImageExt     = "input_image"
	ReferenceImageExt = "reference_image"
)

// Numeric metadata carried in the primary header of a benchmark file
type Metadata map[string]float32

// A cleaning benchmark file: a noisy input image, the known-truth
// reference image, and the simulation metadata of the event
type Benchmark struct {
	FileName  string
	Input     *Image
	Reference *Image
	Metadata  Metadata
}

// Reads a benchmark file, locating the input and reference image HDUs by
// EXTNAME, falling back to HDU order for files written without names.
// Both images must be 2D arrays of identical dimensions
func LoadBenchmarkImages(fileName string, logWriter io.Writer) (*Benchmark, error) {
	hdus, err:=ReadFileHDUs(fileName, logWriter)
	if err!=nil { return nil, err }

	b:=&Benchmark{FileName: fileName, Metadata: Metadata{}}
	unnamed:=[]*Image{}
	for _,hdu:=range hdus {
		switch strings.ToLower(hdu.ExtName) {
		case InputImageExt:
			b.Input=hdu
		case ReferenceImageExt:
			b.Reference=hdu
		default:
			if hdu.Pixels>0 {
				unnamed=append(unnamed, hdu)
			}
		}
		for key,value:=range hdu.Header.Floats {
			b.Metadata[key]=value
		}
		for key,value:=range hdu.Header.Ints {
			b.Metadata[key]=float32(value)
		}
	}

	// positional fallback: first data HDU is the input, second the reference
	if b.Input==nil && len(unnamed)>0 {
		b.Input=unnamed[0]
		unnamed=unnamed[1:]
	}
	if b.Reference==nil && len(unnamed)>0 {
		b.Reference=unnamed[0]
	}

	if b.Input==nil {
		return nil, fmt.Errorf("%s: missing %s HDU", fileName, InputImageExt)
	}
	if b.Reference==nil {
		return nil, fmt.Errorf("%s: missing %s HDU", fileName, ReferenceImageExt)
	}
	if !b.Input.Is2D() {
		return nil, fmt.Errorf("%s: the %s HDU should contain a 2D array, got %s", fileName, InputImageExt, b.Input.DimensionsToString())
	}
	if !b.Reference.Is2D() {
		return nil, fmt.Errorf("%s: the %s HDU should contain a 2D array, got %s", fileName, ReferenceImageExt, b.Reference.DimensionsToString())
	}
	if !EqualInt32Slice(b.Input.Naxisn, b.Reference.Naxisn) {
		return nil, fmt.Errorf("%s: input is %s but reference is %s", fileName, b.Input.DimensionsToString(), b.Reference.DimensionsToString())
	}
	return b, nil
}

// Writes a benchmark file: an empty primary HDU holding the metadata,
// followed by the two named image extensions
func WriteBenchmarkFile(fileName string, input, reference *Image, meta Metadata) error {
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()
	return WriteBenchmark(f, input, reference, meta)
}

// Writes a benchmark to the given writer
func WriteBenchmark(w io.Writer, input, reference *Image, meta Metadata) error {
	primary:=NewImage()
	for key,value:=range meta {
		primary.Header.Floats[key]=value
	}
	if err:=primary.write(w, true); err!=nil { return err }

	in:=*input
	in.ExtName=InputImageExt
	if err:=in.write(w, false); err!=nil { return err }

	ref:=*reference
	ref.ExtName=ReferenceImageExt
	return ref.write(w, false)
}
