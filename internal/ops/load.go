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
	"os"
	"path/filepath"
	"strings"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
)

// Load a single benchmark file. Takes zero inputs, produces one output
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "") }

func NewOpLoad(id int, fileName string) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
	}
}

func (op *OpLoad) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins)>0 { return nil, fmt.Errorf("%s operator with non-zero input", op.Type) }

	out:=func() (r *Result, err error) {
		// no inputs to materialize
		return op.Apply(nil, c)
	}
	return []Promise{out}, nil
}

func (op *OpLoad) Apply(r *Result, c *Context) (result *Result, err error) {
	bench, err:=fits.LoadBenchmarkImages(op.FileName, c.Log)
	if err!=nil { return nil, err }
	bench.Input.ID=op.ID
	bench.Reference.ID=op.ID

	warning:=""
	if bench.Input.Stats.Max-bench.Input.Stats.Min<1e-8 {
		warning="; WARNING low dynamic range"
	}

	fmt.Fprintf(c.Log, "%d: Loaded %s benchmark with input %v from %s%s\n",
		op.ID, bench.Input.DimensionsToString(), bench.Input.Stats, bench.FileName, warning)
	return &Result{Bench: bench}, nil
}

// Load many benchmark files from a slice of filename patterns with
// wildcards. Directories expand to the FITS files inside them.
// Takes zero inputs, produces n outputs
type OpLoadMany struct {
	OpBase
	FilePatterns []string `json:"filePatterns"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadManyDefault() }) } // register the operator for JSON decoding

func NewOpLoadManyDefault() *OpLoadMany { return NewOpLoadMany(nil) }

func NewOpLoadMany(filePatterns []string) *OpLoadMany {
	return &OpLoadMany{
		OpBase:       OpBase{Type: "loadMany", Active: true},
		FilePatterns: filePatterns,
	}
}

// Turn filename wildcards into a list of file load operators
func (op *OpLoadMany) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins)>0 { return nil, fmt.Errorf("%s operator with non-zero input", op.Type) }
	for _,pattern:=range op.FilePatterns {
		matches, err:=filepath.Glob(pattern)
		if err!=nil { return nil, err }
		for _,match:=range matches {
			files, err:=expandDirectory(match)
			if err!=nil { return nil, err }
			for _,fileName:=range files {
				opLoad:=NewOpLoad(len(outs), fileName)
				promises, err:=opLoad.MakePromises(nil, c)
				if err!=nil { return nil, err }
				if len(promises)!=1 { return nil, fmt.Errorf("%s operator did not return exactly one promise", opLoad.Type) }
				outs=append(outs, promises[0])
			}
		}
	}
	if len(outs)==0 {
		return nil, fmt.Errorf("%s operator with no files to load from pattern %v",
			op.Type, op.FilePatterns)
	}
	fmt.Fprintf(c.Log, "Found %d files.\n", len(outs))
	return outs, nil
}

func expandDirectory(path string) ([]string, error) {
	info, err:=os.Stat(path)
	if err!=nil { return nil, err }
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err:=os.ReadDir(path)
	if err!=nil { return nil, err }
	var files []string
	for _,e:=range entries {
		if e.IsDir() { continue }
		if isFITSName(e.Name()) {
			files=append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

func isFITSName(name string) bool {
	lower:=strings.ToLower(name)
	for _,suffix:=range []string{".fits", ".fit", ".fts", ".fits.gz", ".fit.gz", ".fts.gz"} {
		if strings.HasSuffix(lower, suffix) { return true }
	}
	return false
}
