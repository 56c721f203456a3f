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
	"bytes"
	"io"
	"path/filepath"
	"testing"
)

func makeTestImage(width, height int32) *Image {
	img:=NewImageFromNaxisn([]int32{width, height}, nil)
	for i:=range img.Data {
		img.Data[i]=float32(i%17)
	}
	return img
}

func TestBenchmarkRoundTrip(t *testing.T) {
	input:=makeTestImage(40, 40)
	reference:=makeTestImage(40, 40)
	for i:=range reference.Data {
		reference.Data[i]=float32((i*3)%11)
	}

	fileName:=filepath.Join(t.TempDir(), "event.fits")
	err:=WriteBenchmarkFile(fileName, input, reference, Metadata{"EV_COUNT": 42})
	if err!=nil { t.Fatalf("WriteBenchmarkFile: %s", err.Error()) }

	b, err:=LoadBenchmarkImages(fileName, io.Discard)
	if err!=nil { t.Fatalf("LoadBenchmarkImages: %s", err.Error()) }

	if b.Input.ExtName!=InputImageExt { t.Errorf("input ExtName=%s; want %s", b.Input.ExtName, InputImageExt) }
	if b.Reference.ExtName!=ReferenceImageExt { t.Errorf("reference ExtName=%s; want %s", b.Reference.ExtName, ReferenceImageExt) }
	if !EqualInt32Slice(b.Input.Naxisn, []int32{40, 40}) { t.Errorf("input dims=%s; want 40x40", b.Input.DimensionsToString()) }

	for i:=range input.Data {
		if b.Input.Data[i]!=input.Data[i] {
			t.Fatalf("input data[%d]=%f; want %f", i, b.Input.Data[i], input.Data[i])
		}
		if b.Reference.Data[i]!=reference.Data[i] {
			t.Fatalf("reference data[%d]=%f; want %f", i, b.Reference.Data[i], reference.Data[i])
		}
	}

	if v, ok:=b.Metadata["EV_COUNT"]; !ok || v!=42 {
		t.Errorf("Metadata[EV_COUNT]=%f,%v; want 42,true", v, ok)
	}
}

func TestBenchmarkRejectsNon2D(t *testing.T) {
	input:=NewImageFromNaxisn([]int32{8, 8, 3}, nil)
	reference:=NewImageFromNaxisn([]int32{8, 8, 3}, nil)

	fileName:=filepath.Join(t.TempDir(), "bad.fits")
	if err:=WriteBenchmarkFile(fileName, input, reference, nil); err!=nil {
		t.Fatalf("WriteBenchmarkFile: %s", err.Error())
	}

	_, err:=LoadBenchmarkImages(fileName, io.Discard)
	if err==nil { t.Fatal("LoadBenchmarkImages accepted a 3D input image") }
}

func TestBenchmarkRejectsShapeMismatch(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "mismatch.fits")
	if err:=WriteBenchmarkFile(fileName, makeTestImage(40, 40), makeTestImage(20, 20), nil); err!=nil {
		t.Fatalf("WriteBenchmarkFile: %s", err.Error())
	}

	if _, err:=LoadBenchmarkImages(fileName, io.Discard); err==nil {
		t.Fatal("LoadBenchmarkImages accepted mismatched image dimensions")
	}
}

func TestReadHDUsInMemory(t *testing.T) {
	buf:=bytes.Buffer{}
	if err:=WriteBenchmark(&buf, makeTestImage(40, 40), makeTestImage(40, 40), nil); err!=nil {
		t.Fatalf("WriteBenchmark: %s", err.Error())
	}

	hdus, err:=ReadHDUs(bytes.NewReader(buf.Bytes()), "mem.fits", io.Discard)
	if err!=nil { t.Fatalf("ReadHDUs: %s", err.Error()) }
	if len(hdus)!=3 { t.Fatalf("len(hdus)=%d; want 3", len(hdus)) }
	if hdus[0].Pixels!=0 { t.Errorf("primary Pixels=%d; want 0", hdus[0].Pixels) }
}

func TestReadHDUsEmptyInput(t *testing.T) {
	_, err:=ReadHDUs(bytes.NewReader(nil), "empty.fits", io.Discard)
	if err==nil { t.Fatal("ReadHDUs accepted empty input") }
}

func TestSingleImageRoundTrip(t *testing.T) {
	img:=makeTestImage(31, 17)
	fileName:=filepath.Join(t.TempDir(), "single.fits")
	if err:=img.WriteFile(fileName); err!=nil { t.Fatalf("WriteFile: %s", err.Error()) }

	read, err:=NewImageFromFile(fileName, 7, io.Discard)
	if err!=nil { t.Fatalf("NewImageFromFile: %s", err.Error()) }
	if read.ID!=7 { t.Errorf("ID=%d; want 7", read.ID) }
	if !EqualInt32Slice(read.Naxisn, img.Naxisn) { t.Errorf("dims=%s; want %s", read.DimensionsToString(), img.DimensionsToString()) }
	for i:=range img.Data {
		if read.Data[i]!=img.Data[i] {
			t.Fatalf("data[%d]=%f; want %f", i, read.Data[i], img.Data[i])
		}
	}
}
