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


package ops

import (
	"fmt"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/clean"
)

// Cleans the benchmark input image with the tailcut algorithm.
// Takes n inputs, produces n outputs
type OpTailcut struct {
	OpUnaryBase
	Tailcut clean.Tailcut `json:"tailcut"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpTailcutDefault() }) } // register the operator for JSON decoding

func NewOpTailcutDefault() *OpTailcut { return NewOpTailcut(10, 5, false) }

func NewOpTailcut(high, low float32, killIsolated bool) *OpTailcut {
	op:=OpTailcut{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "tailcut", Active: true}},
		Tailcut:     *clean.NewTailcut(high, low, killIsolated),
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpTailcut) Apply(r *Result, c *Context) (result *Result, err error) {
	return applyCleaner(r, c, &op.Tailcut)
}

// Cleans the benchmark input image with the wavelet algorithm.
// Takes n inputs, produces n outputs
type OpWavelet struct {
	OpUnaryBase
	Wavelet clean.Wavelet `json:"wavelet"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpWaveletDefault() }) } // register the operator for JSON decoding

func NewOpWaveletDefault() *OpWavelet { return NewOpWavelet(clean.DefaultWaveletOptions(), false) }

func NewOpWavelet(opts clean.WaveletOptions, killIsolated bool) *OpWavelet {
	op:=OpWavelet{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "wavelets", Active: true}},
		Wavelet:     *clean.NewWavelet(opts, killIsolated),
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpWavelet) Apply(r *Result, c *Context) (result *Result, err error) {
	return applyCleaner(r, c, &op.Wavelet)
}

func applyCleaner(r *Result, c *Context, cl clean.Cleaner) (*Result, error) {
	if r.Bench==nil { return nil, fmt.Errorf("%s cleaning without a loaded benchmark", cl.Name()) }
	cleaned, err:=cl.Clean(r.Bench.Input)
	if err!=nil { return nil, err }
	r.Cleaned=cleaned
	r.CleanerName=cl.Name()
	fmt.Fprintf(c.Log, "%d: Cleaned with %s, %v\n", r.Bench.Input.ID, cl.Name(), cleaned.Stats)
	return r, nil
}
