// Package dtype defines array element types and the promotion rules that
// decide the element type of a mean reduction.
package dtype

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors.
var (
	// ErrTypeMismatch reports an element type that cannot hold a result.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownDType reports an unrecognised dtype name or value.
	ErrUnknownDType = errors.New("unknown dtype")
)

// DType identifies an array element type.
type DType uint8

// Supported element types. Invalid doubles as "not specified".
const (
	Invalid DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
)

// Kind groups element types for casting decisions.
type Kind uint8

// Kinds in casting order: a value may always move to a later kind.
const (
	KindInvalid Kind = iota
	KindBool
	KindUint
	KindInt
	KindFloat
	KindComplex
)

var dtypeNames = [...]string{
	Invalid:    "invalid",
	Bool:       "bool",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint8:      "uint8",
	Uint16:     "uint16",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
}

// aliases maps shorthand names accepted by Parse.
var aliases = map[string]DType{
	"int":     Int64,
	"uint":    Uint64,
	"float":   Float64,
	"double":  Float64,
	"complex": Complex128,
}

// String returns the canonical lower-case name.
func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}

	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// Valid reports whether d is a concrete element type.
func (d DType) Valid() bool {
	return d > Invalid && d <= Complex128
}

// Kind returns the casting kind of d.
func (d DType) Kind() Kind {
	switch d {
	case Bool:
		return KindBool
	case Int8, Int16, Int32, Int64:
		return KindInt
	case Uint8, Uint16, Uint32, Uint64:
		return KindUint
	case Float32, Float64:
		return KindFloat
	case Complex64, Complex128:
		return KindComplex
	default:
		return KindInvalid
	}
}

// IsComplex reports whether d holds complex values.
func (d DType) IsComplex() bool {
	return d.Kind() == KindComplex
}

// Bits returns the storage width of one element in bits.
func (d DType) Bits() int {
	switch d {
	case Bool, Int8, Uint8:
		return 8
	case Int16, Uint16:
		return 16
	case Int32, Uint32, Float32:
		return 32
	case Int64, Uint64, Float64, Complex64:
		return 64
	case Complex128:
		return 128
	default:
		return 0
	}
}

// Parse resolves a dtype name such as "float32" or "complex".
func Parse(name string) (DType, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	for d, n := range dtypeNames {
		if DType(d).Valid() && n == key {
			return DType(d), nil
		}
	}

	if d, ok := aliases[key]; ok {
		return d, nil
	}

	return Invalid, fmt.Errorf("%w: %q", ErrUnknownDType, name)
}

// Result returns the element type of a mean over input, honouring an explicit
// override. Pass Invalid as explicit for "not specified".
//
//	input         explicit  result
//	bool/int/uint none      float64
//	float/complex none      same as input
//	any           T         T
//
// A complex input cannot be reduced into a non-complex T, and bool can never
// hold a mean.
func Result(input, explicit DType) (DType, error) {
	if !input.Valid() {
		return Invalid, fmt.Errorf("%w: input %s", ErrUnknownDType, input)
	}

	if explicit != Invalid {
		return resultWithOverride(input, explicit)
	}

	switch input.Kind() {
	case KindFloat, KindComplex:
		return input, nil
	default:
		return Float64, nil
	}
}

func resultWithOverride(input, explicit DType) (DType, error) {
	if !explicit.Valid() {
		return Invalid, fmt.Errorf("%w: dtype %s", ErrUnknownDType, explicit)
	}

	if explicit == Bool {
		return Invalid, fmt.Errorf("%w: a mean cannot be stored as bool", ErrTypeMismatch)
	}

	if input.IsComplex() && !explicit.IsComplex() {
		return Invalid, fmt.Errorf("%w: complex input cannot reduce to %s", ErrTypeMismatch, explicit)
	}

	return explicit, nil
}

// CanCast reports whether a value of type src may be written into dst under
// same-kind casting: any width, provided the kind does not move backwards
// (bool → uint → int → float → complex).
func CanCast(src, dst DType) bool {
	if !src.Valid() || !dst.Valid() {
		return false
	}

	return src.Kind() <= dst.Kind()
}

// TruncInt converts v to a signed integer of the given width, truncating
// toward zero and saturating at the bounds. NaN converts to 0.
func TruncInt(v float64, bits int) int64 {
	if math.IsNaN(v) {
		return 0
	}

	limit := math.Ldexp(1, bits-1)
	t := math.Trunc(v)

	switch {
	case t >= limit:
		return int64(1)<<(bits-1) - 1
	case t < -limit:
		return -(int64(1) << (bits - 1))
	default:
		return int64(t)
	}
}

// TruncUint converts v to an unsigned integer of the given width, truncating
// toward zero and saturating at the bounds. NaN and negatives convert to 0.
func TruncUint(v float64, bits int) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}

	limit := math.Ldexp(1, bits)
	t := math.Trunc(v)

	if t >= limit {
		return uint64(1)<<bits - 1
	}

	return uint64(t)
}

// CastReal rounds v to the nearest value dt can hold under the rules of
// TruncInt and TruncUint. Complex types round their real component.
func CastReal(dt DType, v float64) float64 {
	switch dt.Kind() {
	case KindBool:
		if v != 0 {
			return 1
		}

		return 0
	case KindInt:
		return float64(TruncInt(v, dt.Bits()))
	case KindUint:
		return float64(TruncUint(v, dt.Bits()))
	case KindInvalid, KindFloat, KindComplex:
	}

	if dt == Float32 || dt == Complex64 {
		return float64(float32(v))
	}

	return v
}

// CastComplex rounds v to the nearest value dt can hold. Real types drop the
// imaginary part.
func CastComplex(dt DType, v complex128) complex128 {
	switch dt {
	case Complex64:
		return complex128(complex64(v))
	case Complex128:
		return v
	default:
		return complex(CastReal(dt, real(v)), 0)
	}
}

// Representable reports whether dt holds v exactly, up to float rounding:
// integers must be integral and in range, bool takes 0 or 1 and float32
// must not overflow.
func Representable(dt DType, v float64) bool {
	switch dt.Kind() {
	case KindBool:
		return v == 0 || v == 1
	case KindInt:
		limit := math.Ldexp(1, dt.Bits()-1)

		return v == math.Trunc(v) && v >= -limit && v < limit
	case KindUint:
		return v == math.Trunc(v) && v >= 0 && v < math.Ldexp(1, dt.Bits())
	case KindInvalid, KindFloat, KindComplex:
	}

	if dt == Float32 || dt == Complex64 {
		return math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) <= math.MaxFloat32
	}

	return true
}
