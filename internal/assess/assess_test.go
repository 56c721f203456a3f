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


package assess

import (
	"errors"
	"math"
	"testing"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
)

func diagonalImage(width, height int32, value float32) *fits.Image {
	data:=make([]float32, width*height)
	for i:=int32(0); i<width && i<height; i++ {
		data[i*width+i]=value
	}
	return fits.NewImageFromNaxisn([]int32{width, height}, data)
}

func TestPerfectCleaningScoresZero(t *testing.T) {
	ref:=diagonalImage(40, 40, 10)
	input:=diagonalImage(40, 40, 10)
	cleaned:=diagonalImage(40, 40, 10)

	scores, names, err:=AssessImageCleaning(input, cleaned, ref, MethodAll)
	if err!=nil { t.Fatalf("assessment failed: %s", err) }
	if len(scores)!=len(names) {
		t.Fatalf("%d scores but %d names", len(scores), len(names))
	}
	byName:=map[string]float64{}
	for i,n:=range names { byName[n]=scores[i] }

	for _,n:=range []string{"e_shape", "e_energy", "mse", "nrmse"} {
		if v, ok:=byName[n]; !ok {
			t.Errorf("missing score %s", n)
		} else if v!=0 {
			t.Errorf("%s=%f for identical images, expected 0", n, v)
		}
	}
	if c:=byName["correlation"]; math.Abs(c-1)>1e-9 {
		t.Errorf("correlation=%f for identical images, expected 1", c)
	}
}

func TestWorseCleaningScoresWorse(t *testing.T) {
	ref:=diagonalImage(40, 40, 10)
	input:=diagonalImage(40, 40, 10)
	good:=diagonalImage(40, 40, 10)
	good.Data[0]=0 // drop one pixel
	bad:=diagonalImage(40, 40, 2) // wrong intensity everywhere

	goodScores, _, err:=AssessImageCleaning(input, good, ref, MethodMSE)
	if err!=nil { t.Fatalf("assessment failed: %s", err) }
	badScores, _, err:=AssessImageCleaning(input, bad, ref, MethodMSE)
	if err!=nil { t.Fatalf("assessment failed: %s", err) }
	if goodScores[0]>=badScores[0] {
		t.Errorf("mse ordering wrong: good %f, bad %f", goodScores[0], badScores[0])
	}
}

func TestEnergyScore(t *testing.T) {
	ref:=diagonalImage(40, 40, 10)
	input:=diagonalImage(40, 40, 10)
	half:=diagonalImage(40, 40, 5)

	scores, names, err:=AssessImageCleaning(input, half, ref, MethodShape)
	if err!=nil { t.Fatalf("assessment failed: %s", err) }
	byName:=map[string]float64{}
	for i,n:=range names { byName[n]=scores[i] }
	if math.Abs(byName["e_energy"]-0.5)>1e-6 {
		t.Errorf("e_energy=%f for half intensity, expected 0.5", byName["e_energy"])
	}
}

func TestEmptyReferenceRejected(t *testing.T) {
	ref:=fits.NewImageFromNaxisn([]int32{40, 40}, make([]float32, 1600))
	img:=diagonalImage(40, 40, 10)

	_, _, err:=AssessImageCleaning(img, img, ref, MethodMSE)
	if !errors.Is(err, ErrEmptyReference) {
		t.Errorf("expected ErrEmptyReference, got %v", err)
	}
	var ae *Error
	if !errors.As(err, &ae) {
		t.Errorf("expected typed assessment error, got %T", err)
	}
}

func TestShapeMismatchRejected(t *testing.T) {
	ref:=diagonalImage(40, 40, 10)
	small:=diagonalImage(20, 20, 10)
	if _, _, err:=AssessImageCleaning(ref, small, ref, MethodMSE); err==nil {
		t.Errorf("expected error for mismatched shapes")
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	img:=diagonalImage(40, 40, 10)
	if _, _, err:=AssessImageCleaning(img, img, img, "nope"); err==nil {
		t.Errorf("expected error for unknown method")
	}
}
