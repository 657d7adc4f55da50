package ssa

import (
	"fmt"
	"math"
)

// ValueID is a value's identity, independent of its type.
type ValueID uint32

// Value is an SSA value: an identity tagged with its Type in the high 32
// bits, following the teacher's Value uint64 packing so Type() and ID() are
// both branch-free.
type Value uint64

const invalidValueID = ValueID(math.MaxUint32)

// ValueInvalid is the zero value of Value's validity: no instruction
// produces it.
var ValueInvalid = Value(invalidValueID)

func (v Value) ID() ValueID   { return ValueID(v) }
func (v Value) Type() Type    { return Type(v >> 32) }
func (v Value) Valid() bool   { return v.ID() != invalidValueID }
func (v Value) String() string { return fmt.Sprintf("v%d", v.ID()) }

func (v Value) setType(t Type) Value { return v | Value(t)<<32 }

// Variable identifies a source-level local (a Wasm local or VM-internal
// slot); the builder tracks its current defining Value per basic block
// (akin to the teacher's Variable, simplified: no SSA-construction phi
// insertion, since the translator builds each function in a single
// structured pass and never needs to resolve a value defined in a sibling
// branch that hasn't executed yet, per spec.md §4.H's block structure).
type Variable uint32
