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
	"errors"
	"fmt"
	"strings"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/assess"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
)

// Scores the cleaned image against the reference. Takes n inputs,
// produces n outputs
type OpAssess struct {
	OpUnaryBase
	Method string `json:"method"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpAssessDefault() }) } // register the operator for JSON decoding

func NewOpAssessDefault() *OpAssess { return NewOpAssess(assess.MethodAll) }

func NewOpAssess(method string) *OpAssess {
	op:=OpAssess{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "assess", Active: true}},
		Method:      method,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpAssess) Apply(r *Result, c *Context) (result *Result, err error) {
	if r.Bench==nil || r.Cleaned==nil { return nil, errors.New("assessment without a cleaned benchmark") }

	scores, names, err:=assess.AssessImageCleaning(r.Bench.Input, r.Cleaned, r.Bench.Reference, op.Method)
	if err!=nil {
		// a failed assessment keeps any partial scores and is only logged,
		// the remaining steps still run on this benchmark
		var ae *assess.Error
		if errors.As(err, &ae) {
			if len(ae.Scores)>0 { r.Scores, r.ScoreNames=ae.Scores, ae.Names }
			fmt.Fprintf(c.Log, "%d: Assessment failed: %s\n", r.Bench.Input.ID, err.Error())
			return r, nil
		}
		return nil, fmt.Errorf("%d: %s", r.Bench.Input.ID, err.Error())
	}
	r.Scores, r.ScoreNames=scores, names

	parts:=make([]string, len(scores))
	for i:=range scores {
		parts[i]=fmt.Sprintf("%s=%.6g", names[i], scores[i])
	}
	fmt.Fprintf(c.Log, "%d: Scores %s\n", r.Bench.Input.ID, strings.Join(parts, " "))
	return r, nil
}

// Fits ellipses to the cleaned and reference images and computes
// their perpendicular hit distance distributions. Takes n inputs,
// produces n outputs
type OpHillas struct {
	OpUnaryBase
}

func init() { SetOperatorFactory(func() Operator { return NewOpHillasDefault() }) } // register the operator for JSON decoding

func NewOpHillasDefault() *OpHillas { return NewOpHillas() }

func NewOpHillas() *OpHillas {
	op:=OpHillas{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "hillas", Active: true}},
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpHillas) Apply(r *Result, c *Context) (result *Result, err error) {
	if r.Bench==nil || r.Cleaned==nil { return nil, errors.New("ellipse fit without a cleaned benchmark") }
	if c.Geometry==nil { return nil, errors.New("ellipse fit without a camera geometry") }

	r.CleanedHist, r.CleanedParams, err=hillas.PerpendicularHitDistribution(r.Cleaned, c.Geometry)
	if err!=nil {
		if !isDegenerateFit(err) { return nil, fmt.Errorf("%d: cleaned image: %s", r.Bench.Input.ID, err.Error()) }
		fmt.Fprintf(c.Log, "%d: No ellipse for cleaned image: %s\n", r.Bench.Input.ID, err.Error())
	}
	r.RefHist, r.RefParams, err=hillas.PerpendicularHitDistribution(r.Bench.Reference, c.Geometry)
	if err!=nil {
		if !isDegenerateFit(err) { return nil, fmt.Errorf("%d: reference image: %s", r.Bench.Input.ID, err.Error()) }
		fmt.Fprintf(c.Log, "%d: No ellipse for reference image: %s\n", r.Bench.Input.ID, err.Error())
	}

	if r.CleanedParams!=nil {
		fmt.Fprintf(c.Log, "%d: Ellipse cen %.4f %.4f len %.4f wid %.4f psi %.4f size %.1f\n",
			r.Bench.Input.ID, r.CleanedParams.CenX, r.CleanedParams.CenY,
			r.CleanedParams.Length, r.CleanedParams.Width, r.CleanedParams.Psi, r.CleanedParams.Size)
	}
	return r, nil
}

// A degenerate fit means the image holds no usable shower, which is a
// property of the data rather than a pipeline failure
func isDegenerateFit(err error) bool {
	return errors.Is(err, hillas.ErrDegenerate) || errors.Is(err, hillas.ErrUndefinedOrientation)
}
