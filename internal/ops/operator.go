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


// Package ops wires benchmark processing steps into lazily evaluated
// pipelines
package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/pbnjay/memory"

	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/fits"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/hillas"
	"github.com/jdhp-sap/sap-cta-data-pipeline/internal/stats"
)

// An execution context for operators
type Context struct {
	Log        io.Writer
	Geometry   *hillas.Geometry
	MemoryMB   int // memory.TotalMemory()/1024/1024
	MaxThreads int `json:"maxThreads"`
}

func NewContext(log io.Writer, geom *hillas.Geometry) *Context {
	memoryMB:=int(memory.TotalMemory()/1024/1024)
	return &Context{
		Log:        log,
		Geometry:   geom,
		MemoryMB:   memoryMB,
		MaxThreads: runtime.GOMAXPROCS(0),
	}
}

// The unit of work flowing through a pipeline: one benchmark file and
// everything derived from it so far
type Result struct {
	Bench       *fits.Benchmark
	Cleaned     *fits.Image
	CleanerName string

	Scores     []float64
	ScoreNames []string

	CleanedParams *hillas.Parameters
	RefParams     *hillas.Parameters
	CleanedHist   *stats.Histogram
	RefHist       *stats.Histogram
}

// A promise for a benchmark result. Returns a materialized result,
// or an error
type Promise func() (r *Result, err error)

// Materializes all promises with given concurrency limit. With
// forget, results are discarded after evaluation to bound memory
func MaterializeAll(ins []Promise, maxThreads int, forget bool) (outs []*Result, err error) {
	if len(ins)==0 { return nil, nil }
	if !forget {
		outs=make([]*Result, len(ins))
	}
	limiter:=make(chan bool, maxThreads)
	errs:=make(chan error, len(ins))
	for i, in:=range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			r, err:=theIn() // materialize the promise
			if err!=nil {
				errs <- err
				return
			}
			if !forget {
				outs[i]=r
			}
			errs <- nil
		}(i, in)
	}
	for i:=0; i<cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i:=0; i<len(ins); i++ { // collect errors
		e:=<-errs
		if e!=nil {
			if err==nil {
				err=e
			} else {
				err=fmt.Errorf("%s; %s", err.Error(), e.Error())
			}
		}
	}
	return RemoveNils(outs), err
}

// Remove nils from an array of results, editing the underlying array in place
func RemoveNils(results []*Result) []*Result {
	o:=0
	for i:=0; i<len(results); i+=1 {
		if results[i]!=nil {
			results[o]=results[i]
			o+=1
		}
	}
	for i:=o; i<len(results); i++ {
		results[i]=nil
	}
	return results[:o]
}

// A general benchmark processing operator: takes n promises as inputs,
// and produces m promises as output or an error
type Operator interface {
	GetType() string
	IsActive() bool
	MakePromises(ins []Promise, c *Context) (outs []Promise, err error)
}

// Base type for operators, including type information for JSON serializing/deserializing
type OpBase struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool  { return op.Active }

// Factory method for operator subclasses. For JSON serializing/deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories=map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers a given type string for a given type of operator, identified via an exemplar generator
func SetOperatorFactory(f OperatorFactory) {
	op:=f()
	t:=op.GetType()
	if GetOperatorFactory(t)!=nil { panic(fmt.Sprintf("error: re-registering operator key %s\n", t)) }
	operatorFactories[t]=f
}

// A unary benchmark processing operator: given n promises as inputs,
// applies itself to each of them individually and returns n output promises or an error
type OperatorUnary interface {
	Operator
	Apply(r *Result, c *Context) (rOut *Result, err error)
}

// Abstract base type for unary operators. Uses golang workaround for abstract classes
// from https://golangbyexample.com/go-abstract-class/
type OpUnaryBase struct {
	OpBase
	Apply func(r *Result, c *Context) (rOut *Result, err error) `json:"-"`
}

func (op *OpUnaryBase) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins)==0 { return nil, fmt.Errorf("unary operator with %d inputs", len(ins)) }
	outs=make([]Promise, len(ins))
	for i,in:=range ins {
		outs[i]=op.MakePromise(in, c)
	}
	return outs, nil
}

func (op *OpUnaryBase) MakePromise(in Promise, c *Context) (out Promise) {
	return func() (r *Result, err error) {
		if r, err=in();           err!=nil { return nil, err } // materialize input promise
		if r, err=op.Apply(r, c); err!=nil { return nil, err } // apply unary operator
		return r, nil                                          // wrap output in promise
	}
}

// Applies a sequence of operators to a promise. Number of inputs, outputs as per the chained steps
type OpSequence struct {
	OpBase
	Steps    []Operator        `json:"-"`     // the actual steps
	StepsRaw []json.RawMessage `json:"steps"` // helper for unmarshaling
}

func init() { SetOperatorFactory(func() Operator { return NewOpSequenceDefault() }) } // register the operator for JSON decoding

func NewOpSequenceDefault() *OpSequence { return NewOpSequence() }

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase: OpBase{Type: "seq", Active: len(steps)>0},
		Steps:  steps,
	}
}

// Unmarshals a sequence of polymorphic operators from JSON.
// Uses temporary op.StepsRaw inspired by https://alexkappa.medium.com/json-polymorphism-in-go-4cade1e58ed1
func (op *OpSequence) UnmarshalJSON(b []byte) error {
	type alias OpSequence
	err:=json.Unmarshal(b, (*alias)(op))
	if err!=nil { return err }

	for _,raw:=range op.StepsRaw {
		var step OpBase
		err=json.Unmarshal(raw, &step)
		if err!=nil { return err }

		var i Operator
		if factory:=GetOperatorFactory(step.Type); factory!=nil {
			i=factory()
		} else {
			return fmt.Errorf("unknown operator type '%s' in raw JSON message '%s'", step.Type, string(raw))
		}
		err=json.Unmarshal(raw, i)
		if err!=nil { return err }
		op.Steps=append(op.Steps, i)
	}
	return nil
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	for _,step:=range steps {
		op.Steps=append(op.Steps, step)
	}
}

// Marshals a sequence with polymorphic operators to JSON.
// Uses the actual op.Steps with label "steps", and ignores op.StepsRaw
func (op *OpSequence) MarshalJSON() (bs []byte, err error) {
	buf:=bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner, err:=json.Marshal(op.Type)
	if err!=nil { return nil, err }
	buf.Write(inner)
	fmt.Fprintf(&buf, ", \"active\":%v, \"steps\":", op.Active)
	inner, err=json.Marshal(op.Steps)
	if err!=nil { return nil, err }
	buf.Write(inner)
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

func (op *OpSequence) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	return op.applyRecursive(op.Steps, ins, c)
}

func (op *OpSequence) applyRecursive(steps []Operator, ins []Promise, c *Context) (outs []Promise, err error) {
	if len(steps)==0 { return ins, nil }
	ins, err=steps[0].MakePromises(ins, c)
	if err!=nil { return nil, err }
	return op.applyRecursive(steps[1:], ins, c)
}

// Applies a single operator to each input. Takes n inputs, produces n outputs
type OpForEach struct {
	OpBase
	Operation Operator `json:"operation"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpForEachDefault() }) } // register the operator for JSON decoding

func NewOpForEachDefault() *OpForEach { return NewOpForEach(nil) }

func NewOpForEach(operation Operator) *OpForEach {
	return &OpForEach{
		OpBase:    OpBase{Type: "forEach", Active: operation!=nil},
		Operation: operation,
	}
}

// Unmarshals the embedded polymorphic operation from JSON.
// Mirrors the factory dispatch of OpSequence.UnmarshalJSON
func (op *OpForEach) UnmarshalJSON(b []byte) error {
	raw:=struct {
		OpBase
		Operation json.RawMessage `json:"operation"`
	}{}
	err:=json.Unmarshal(b, &raw)
	if err!=nil { return err }
	op.OpBase=raw.OpBase

	if len(raw.Operation)==0 || bytes.Equal(raw.Operation, []byte("null")) {
		op.Operation=nil
		return nil
	}
	var step OpBase
	err=json.Unmarshal(raw.Operation, &step)
	if err!=nil { return err }

	var i Operator
	if factory:=GetOperatorFactory(step.Type); factory!=nil {
		i=factory()
	} else {
		return fmt.Errorf("unknown operator type '%s' in raw JSON message '%s'", step.Type, string(raw.Operation))
	}
	err=json.Unmarshal(raw.Operation, i)
	if err!=nil { return err }
	op.Operation=i
	return nil
}

func (op *OpForEach) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins)==0 { return ins, nil }
	if op.Operation==nil { return nil, fmt.Errorf("%s operator has no operation to apply", op.Type) }
	for _,in:=range ins {
		out, err:=op.Operation.MakePromises([]Promise{in}, c)
		if err!=nil { return nil, err }
		if len(out)!=1 { return nil, fmt.Errorf("%s operator needs exactly one promise from embedded operation", op.Type) }
		outs=append(outs, out[0])
	}
	return outs, nil
}
