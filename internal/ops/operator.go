// Copyright (C) 2020 Markus L. Noga
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
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// An image processing operator: applies itself to an image, either mutating it
// in place or returning a freshly allocated replacement
type Operator interface {
	GetType() string
	IsActive() bool
	Apply(img *raw.Image, c *Context) (*raw.Image, error)
}

// Base type for operators, including type information for JSON serializing/deserializing
type OpBase struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool  { return op.Active }

// Factory method for operators. For JSON serializing/deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories = map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers a given type string for a given type of Operator, identified via an exemplar generator
func SetOperatorFactory(f OperatorFactory) {
	op := f()
	t := op.GetType()
	if GetOperatorFactory(t) != nil {
		panic(fmt.Sprintf("error: re-registering operator key %s\n", t))
	}
	operatorFactories[t] = f
}

// Decodes a single polymorphic operator from JSON, using the registered factory for its type
func UnmarshalOperator(msg json.RawMessage) (Operator, error) {
	var base OpBase
	if err := json.Unmarshal(msg, &base); err != nil {
		return nil, err
	}
	factory := GetOperatorFactory(base.Type)
	if factory == nil {
		return nil, fmt.Errorf("unknown operator type '%s' in raw JSON message '%s'", base.Type, string(msg))
	}
	op := factory()
	if err := json.Unmarshal(msg, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Applies a sequence of operators to an image. Stops at the first error
type OpSequence struct {
	OpBase
	Steps    []Operator        `json:"-"`     // the actual steps
	StepsRaw []json.RawMessage `json:"steps"` // helper for unmarshaling
}

func init() { SetOperatorFactory(func() Operator { return NewOpSequenceDefault() }) } // register the operator for JSON decoding

func NewOpSequenceDefault() *OpSequence { return NewOpSequence() }

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase: OpBase{Type: "seq", Active: len(steps) > 0},
		Steps:  steps,
	}
}

// Unmarshals a sequence of polymorphic operators from JSON.
// Uses temporary op.StepsRaw inspired by https://alexkappa.medium.com/json-polymorphism-in-go-4cade1e58ed1
func (op *OpSequence) UnmarshalJSON(b []byte) error {
	type alias OpSequence
	if err := json.Unmarshal(b, (*alias)(op)); err != nil {
		return err
	}
	for _, msg := range op.StepsRaw {
		step, err := UnmarshalOperator(msg)
		if err != nil {
			return err
		}
		op.Steps = append(op.Steps, step)
	}
	op.StepsRaw = nil
	return nil
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	op.Steps = append(op.Steps, steps...)
}

// Marshals a sequence with polymorphic operators to JSON.
// Uses the actual op.Steps with label "steps", and ignores op.StepsRaw
func (op *OpSequence) MarshalJSON() (bs []byte, err error) {
	buf := bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner, err := json.Marshal(op.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	fmt.Fprintf(&buf, ", \"active\":%v, \"steps\":", op.Active)
	steps := op.Steps
	if steps == nil {
		steps = []Operator{}
	}
	inner, err = json.Marshal(steps)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

// Applies all active steps in order. Inactive steps are skipped
func (op *OpSequence) Apply(img *raw.Image, c *Context) (*raw.Image, error) {
	for _, step := range op.Steps {
		if !step.IsActive() {
			continue
		}
		out, err := step.Apply(img, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.GetType(), err)
		}
		img = out
	}
	return img, nil
}
