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
	"path/filepath"
	"strings"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/render"
)

// Renders the benchmark figure for each result. The file pattern
// supports %d for the image id and %auto to derive the name from the
// benchmark file. Takes n inputs, produces n outputs
type OpRender struct {
	OpUnaryBase
	FilePattern string `json:"filePattern"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpRenderDefault() }) } // register the operator for JSON decoding

func NewOpRenderDefault() *OpRender { return NewOpRender("") }

func NewOpRender(filePattern string) *OpRender {
	op:=OpRender{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "render", Active: filePattern!=""}},
		FilePattern: filePattern,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpRender) Apply(r *Result, c *Context) (result *Result, err error) {
	if !op.Active || op.FilePattern=="" { return r, nil }
	if r.Bench==nil || r.Cleaned==nil { return nil, errors.New("figure rendering without a cleaned benchmark") }
	if c.Geometry==nil { return nil, errors.New("figure rendering without a camera geometry") }

	fileName:=expandPattern(op.FilePattern, r, ".pdf")
	fig:=&render.Figure{
		Input: r.Bench.Input, Reference: r.Bench.Reference, Cleaned: r.Cleaned,
		Geometry:      c.Geometry,
		CleanedParams: r.CleanedParams, RefParams: r.RefParams,
		CleanedHist: r.CleanedHist, RefHist: r.RefHist,
	}
	fmt.Fprintf(c.Log, "%d: Writing benchmark figure to %s\n", r.Bench.Input.ID, fileName)
	if err:=render.WriteFigure(fig, fileName); err!=nil {
		return nil, fmt.Errorf("%d: error writing figure %s: %s", r.Bench.Input.ID, fileName, err.Error())
	}
	return r, nil
}

// Saves the cleaned image as a single-HDU FITS file. The file pattern
// supports %d and %auto like OpRender. Takes n inputs, produces n
// outputs (the materialized but unchanged input)
type OpSaveCleaned struct {
	OpUnaryBase
	FilePattern string `json:"filePattern"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveCleanedDefault() }) } // register the operator for JSON decoding

func NewOpSaveCleanedDefault() *OpSaveCleaned { return NewOpSaveCleaned("") }

func NewOpSaveCleaned(filePattern string) *OpSaveCleaned {
	op:=OpSaveCleaned{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "saveCleaned", Active: filePattern!=""}},
		FilePattern: filePattern,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpSaveCleaned) Apply(r *Result, c *Context) (result *Result, err error) {
	if !op.Active || op.FilePattern=="" { return r, nil }
	if r.Cleaned==nil { return nil, errors.New("saving without a cleaned image") }

	fileName:=expandPattern(op.FilePattern, r, ".fits")
	lower:=strings.ToLower(fileName)
	if !strings.HasSuffix(lower, ".fits") && !strings.HasSuffix(lower, ".fit") && !strings.HasSuffix(lower, ".fts") {
		return nil, fmt.Errorf("%d: unknown suffix for cleaned image file %s", r.Cleaned.ID, fileName)
	}
	fmt.Fprintf(c.Log, "%d: Writing %s pixel FITS to %s\n", r.Cleaned.ID, r.Cleaned.DimensionsToString(), fileName)
	if err:=r.Cleaned.WriteFile(fileName); err!=nil {
		return nil, fmt.Errorf("%d: error writing to file %s: %s", r.Cleaned.ID, fileName, err.Error())
	}
	return r, nil
}

// Expands %d to the image id and %auto to the benchmark file base
// name with the given suffix
func expandPattern(pattern string, r *Result, suffix string) string {
	fileName:=pattern
	if strings.Contains(fileName, "%d") && r.Bench!=nil {
		fileName=fmt.Sprintf(fileName, r.Bench.Input.ID)
	}
	if strings.Contains(fileName, "%auto") {
		base:="out"
		if r.Bench!=nil && r.Bench.FileName!="" {
			base=filepath.Base(r.Bench.FileName)
			for _,s:=range []string{".gz", ".fits", ".fit", ".fts"} {
				base=strings.TrimSuffix(base, s)
			}
		}
		fileName=strings.ReplaceAll(fileName, "%auto", base+suffix)
	}
	return fileName
}
