package tp

import (
	"strconv"
	"strings"
)

type (
	Type interface {
		Size() int
		Category() Category
		String() string
	}

	Category int

	Void struct{}

	Label struct{}

	Int struct {
		Bits int16
	}

	Float struct {
		Bits int16
	}

	Ptr struct{}

	Array struct {
		X   Type
		Len int
	}

	Vector struct {
		X   Type
		Len int
	}

	Struct struct {
		Fields []Type
		Packed bool
	}

	Func struct {
		In  []Type
		Out Type
	}
)

const (
	CatVoid Category = iota
	CatLabel
	CatInt
	CatFloat
	CatPtr
	CatArray
	CatVector
	CatStruct
	CatFunc
)

var (
	I1  = Int{Bits: 1}
	I8  = Int{Bits: 8}
	I32 = Int{Bits: 32}
	I64 = Int{Bits: 64}
	F64 = Float{Bits: 64}
)

func (Void) Size() int  { return 0 }
func (Label) Size() int { return 0 }

func (x Int) Size() int {
	return (int(x.Bits) + 7) / 8
}

func (x Float) Size() int {
	return int(x.Bits) / 8
}

func (x Ptr) Size() int {
	return 8
}

func (x Array) Size() int {
	return x.X.Size() * x.Len
}

func (x Vector) Size() int {
	return x.X.Size() * x.Len
}

func (x Struct) Size() (s int) {
	for _, f := range x.Fields {
		s += f.Size()
	}

	return s
}

func (x Func) Size() int { return 8 }

func (Void) Category() Category   { return CatVoid }
func (Label) Category() Category  { return CatLabel }
func (Int) Category() Category    { return CatInt }
func (Float) Category() Category  { return CatFloat }
func (Ptr) Category() Category    { return CatPtr }
func (Array) Category() Category  { return CatArray }
func (Vector) Category() Category { return CatVector }
func (Struct) Category() Category { return CatStruct }
func (Func) Category() Category   { return CatFunc }

func (Void) String() string  { return "void" }
func (Label) String() string { return "label" }
func (Ptr) String() string   { return "ptr" }

func (x Int) String() string {
	return "i" + strconv.Itoa(int(x.Bits))
}

func (x Float) String() string {
	switch x.Bits {
	case 32:
		return "float"
	case 64:
		return "double"
	default:
		return "f" + strconv.Itoa(int(x.Bits))
	}
}

func (x Array) String() string {
	return "[" + strconv.Itoa(x.Len) + " x " + x.X.String() + "]"
}

func (x Vector) String() string {
	return "<" + strconv.Itoa(x.Len) + " x " + x.X.String() + ">"
}

func (x Struct) String() string {
	var b strings.Builder

	if x.Packed {
		b.WriteByte('<')
	}

	b.WriteByte('{')

	for i, f := range x.Fields {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(f.String())
	}

	b.WriteByte('}')

	if x.Packed {
		b.WriteByte('>')
	}

	return b.String()
}

func (x Func) String() string {
	var b strings.Builder

	b.WriteString(x.Out.String())
	b.WriteString(" (")

	for i, f := range x.In {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(f.String())
	}

	b.WriteByte(')')

	return b.String()
}

// Equal compares types structurally.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if a.Category() != b.Category() {
		return false
	}

	switch a := a.(type) {
	case Int:
		return a.Bits == b.(Int).Bits
	case Float:
		return a.Bits == b.(Float).Bits
	case Array:
		b := b.(Array)
		return a.Len == b.Len && Equal(a.X, b.X)
	case Vector:
		b := b.(Vector)
		return a.Len == b.Len && Equal(a.X, b.X)
	case Struct:
		b := b.(Struct)
		if a.Packed != b.Packed || len(a.Fields) != len(b.Fields) {
			return false
		}

		for i := range a.Fields {
			if !Equal(a.Fields[i], b.Fields[i]) {
				return false
			}
		}

		return true
	case Func:
		b := b.(Func)
		if len(a.In) != len(b.In) || !Equal(a.Out, b.Out) {
			return false
		}

		for i := range a.In {
			if !Equal(a.In[i], b.In[i]) {
				return false
			}
		}

		return true
	default:
		return true
	}
}

// IsVoid reports whether t produces no usable value.
func IsVoid(t Type) bool {
	return t == nil || t.Category() == CatVoid
}

func (c Category) String() string {
	switch c {
	case CatVoid:
		return "void"
	case CatLabel:
		return "label"
	case CatInt:
		return "int"
	case CatFloat:
		return "float"
	case CatPtr:
		return "ptr"
	case CatArray:
		return "array"
	case CatVector:
		return "vector"
	case CatStruct:
		return "struct"
	case CatFunc:
		return "func"
	default:
		return "cat" + strconv.Itoa(int(c))
	}
}
