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
	"testing"

	"github.com/valyala/fastrand"
)

func TestParseWaveletOptions(t *testing.T) {
	opts, killIsolated, err:=ParseWaveletOptions("-K -k -C1 -m3 -s3 -n4")
	if err!=nil { t.Fatalf("parse failed: %s", err) }
	if !opts.SuppressLastScale { t.Errorf("-K not honored") }
	if !killIsolated { t.Errorf("-k not honored") }
	if opts.NumScales!=4 { t.Errorf("expected 4 scales, got %d", opts.NumScales) }
	if opts.NSigma!=3 { t.Errorf("expected sigma 3, got %f", opts.NSigma) }
}

func TestParseWaveletOptionsRejectsGarbage(t *testing.T) {
	for _,raw:=range []string{"-n1", "-s0", "-x", "foo", "-nABC"} {
		if _, _, err:=ParseWaveletOptions(raw); err==nil {
			t.Errorf("expected error for '%s'", raw)
		}
	}
}

func TestWaveletSuppressesNoiseKeepsSignal(t *testing.T) {
	// flat noise field with a bright compact blob in the middle
	width, height:=int32(40), int32(40)
	data:=make([]float32, width*height)
	rng:=fastrand.RNG{}
	rng.Seed(2020)
	for i:=range data {
		data[i]=float32(rng.Uint32n(100))/100.0
	}
	for dy:=int32(-1); dy<=1; dy++ {
		for dx:=int32(-1); dx<=1; dx++ {
			data[(20+dy)*width+20+dx]+=50
		}
	}

	wt:=NewWavelet(DefaultWaveletOptions(), false)
	res, err:=wt.Clean(makeImage(width, height, data))
	if err!=nil { t.Fatalf("wavelet failed: %s", err) }

	if res.Data[20*width+20]<=0 {
		t.Errorf("blob center suppressed: %f", res.Data[20*width+20])
	}
	kept:=0
	for _,v:=range res.Data {
		if v>0 { kept++ }
	}
	if kept>=len(res.Data)/4 {
		t.Errorf("noise not suppressed, %d of %d pixels kept", kept, len(res.Data))
	}
	for _,v:=range res.Data {
		if v<0 { t.Fatalf("negative pixel after positive-only cleaning: %f", v) }
	}
}

func TestWaveletRejectsTooFewScales(t *testing.T) {
	opts:=DefaultWaveletOptions()
	opts.NumScales=1
	wt:=NewWavelet(opts, false)
	if _, err:=wt.Clean(makeImage(8, 8, make([]float32, 64))); err==nil {
		t.Errorf("expected error for single-scale transform")
	}
}

func TestMirrorIndex(t *testing.T) {
	cases:=[][3]int32{{-1, 5, 0}, {-2, 5, 1}, {5, 5, 4}, {6, 5, 3}, {2, 5, 2}}
	for _,c:=range cases {
		if got:=mirror(c[0], c[1]); got!=c[2] {
			t.Errorf("mirror(%d,%d)=%d, expected %d", c[0], c[1], got, c[2])
		}
	}
}
