package purc

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind identifies the type of a variant value
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindLongInt
	KindLongDouble
	KindString
	KindAtomString
	KindByteSequence
	KindDynamic
	KindNative
	KindObject
	KindArray
	KindSet
	kindMax
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindLongInt:
		return "longint"
	case KindLongDouble:
		return "longdouble"
	case KindString:
		return "string"
	case KindAtomString:
		return "atomstring"
	case KindByteSequence:
		return "bsequence"
	case KindDynamic:
		return "dynamic"
	case KindNative:
		return "native"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// KindFromString converts a kind name to a Kind, returning kindMax for
// unknown names.
func KindFromString(s string) Kind {
	switch strings.ToLower(s) {
	case "undefined":
		return KindUndefined
	case "null":
		return KindNull
	case "boolean", "bool":
		return KindBoolean
	case "number":
		return KindNumber
	case "longint":
		return KindLongInt
	case "longdouble":
		return KindLongDouble
	case "string", "str":
		return KindString
	case "atomstring", "atom":
		return KindAtomString
	case "bsequence", "bytes":
		return KindByteSequence
	case "dynamic":
		return KindDynamic
	case "native":
		return KindNative
	case "object":
		return KindObject
	case "array":
		return KindArray
	case "set":
		return KindSet
	default:
		return kindMax
	}
}

// Flag bits carried by a variant
type Flag uint8

const (
	// FlagNoFree marks the per-instance reserved constants (undefined,
	// null, true, false); they are never returned to the reuse pool.
	FlagNoFree Flag = 1 << iota
	// FlagLong marks values whose payload lives in a separate heap block.
	FlagLong
	// FlagAtomStatic marks atom strings whose text is owned by the
	// instance atom table rather than the value.
	FlagAtomStatic
	// FlagExtraSize marks values that report extra payload bytes to the
	// instance usage statistics.
	FlagExtraSize
)

// Atom is an instance-scoped interned string handle
type Atom uint32

// DynamicFunc is the getter/setter signature of a dynamic variant
type DynamicFunc func(root *Variant, args []*Variant) (*Variant, error)

// NativeOps is the vtable attached to a native variant. Every hook is
// optional.
type NativeOps struct {
	// OnObserve is invoked when an observe construct binds to this
	// entity. Returning false rejects the observation.
	OnObserve func(entity any, eventName, subType string) bool
	// OnForget is invoked when such an observation is revoked.
	OnForget func(entity any, eventName, subType string) bool
	// OnRelease is invoked when the owning variant is released.
	OnRelease func(entity any)
}

type dynamicValue struct {
	getter DynamicFunc
	setter DynamicFunc
}

type nativeValue struct {
	entity any
	ops    *NativeOps
}

// Variant is a tagged, reference-counted runtime value. Variants are
// created through an Instance and must be released through the same
// Instance. A reachable variant always has a refcount of at least 1.
type Variant struct {
	kind   Kind
	flags  Flag
	refc   uint32
	serial uint64

	// scalar payloads, inline
	b   bool
	f   float64
	i   int64
	s   string
	at  Atom
	seq []byte

	// heap payloads
	dyn    *dynamicValue
	native *nativeValue
	obj    *objectData
	arr    *arrayData
	set    *setData

	listeners []*Listener
}

// Kind returns the kind tag of the variant. The invalid variant reports
// an out-of-range kind that stringifies as "unknown".
func (v *Variant) Kind() Kind {
	if v == nil {
		return kindMax
	}
	return v.kind
}

// IsKind reports whether the variant has the given kind.
func (v *Variant) IsKind(k Kind) bool {
	return v != nil && v.kind == k
}

// RefCount returns the current reference count.
func (v *Variant) RefCount() uint32 {
	if v == nil {
		panic("purc: refcount of invalid variant")
	}
	return v.refc
}

// IsContainer reports whether the variant is one of the mutable container
// kinds (object, array, set).
func (v *Variant) IsContainer() bool {
	if v == nil {
		return false
	}
	switch v.kind {
	case KindObject, KindArray, KindSet:
		return true
	}
	return false
}

// reset zeroes a recycled variant, keeping only the serial assigned by
// the allocating instance.
func (v *Variant) reset() {
	serial := v.serial
	*v = Variant{serial: serial}
}

// MakeUndefined returns the reserved undefined constant with an extra
// reference claimed for the caller.
func (inst *Instance) MakeUndefined() *Variant {
	inst.undef.refc++
	return inst.undef
}

// MakeNull returns the reserved null constant with an extra reference
// claimed for the caller.
func (inst *Instance) MakeNull() *Variant {
	inst.null.refc++
	return inst.null
}

// MakeBoolean returns the reserved true or false constant with an extra
// reference claimed for the caller.
func (inst *Instance) MakeBoolean(b bool) *Variant {
	if b {
		inst.vTrue.refc++
		return inst.vTrue
	}
	inst.vFalse.refc++
	return inst.vFalse
}

// MakeNumber creates a number variant.
func (inst *Instance) MakeNumber(f float64) *Variant {
	v := inst.acquire(KindNumber)
	v.f = f
	return v
}

// MakeLongInt creates a long integer variant.
func (inst *Instance) MakeLongInt(i int64) *Variant {
	v := inst.acquire(KindLongInt)
	v.i = i
	return v
}

// MakeLongDouble creates a long double variant.
func (inst *Instance) MakeLongDouble(f float64) *Variant {
	v := inst.acquire(KindLongDouble)
	v.f = f
	return v
}

// MakeString creates a string variant. The text must be valid UTF-8.
func (inst *Instance) MakeString(s string) (*Variant, error) {
	if !utf8.ValidString(s) {
		return nil, inst.setError(CodeInvalidValue, "string is not valid UTF-8")
	}
	v := inst.acquire(KindString)
	v.s = s
	if len(s) > longPayloadThreshold {
		v.flags |= FlagLong
	}
	inst.statExtra(KindString, len(s), true)
	return v, nil
}

// MakeAtomString creates an atom string variant, interning the text in
// the instance atom table.
func (inst *Instance) MakeAtomString(s string) (*Variant, error) {
	if !utf8.ValidString(s) {
		return nil, inst.setError(CodeInvalidValue, "string is not valid UTF-8")
	}
	atom := inst.Atom(s)
	v := inst.acquire(KindAtomString)
	v.at = atom
	v.s = inst.AtomString(atom)
	v.flags |= FlagAtomStatic
	return v, nil
}

// MakeByteSequence creates a byte sequence variant with a private copy of
// the bytes.
func (inst *Instance) MakeByteSequence(b []byte) *Variant {
	v := inst.acquire(KindByteSequence)
	v.seq = make([]byte, len(b))
	copy(v.seq, b)
	if len(b) > longPayloadThreshold {
		v.flags |= FlagLong
	}
	inst.statExtra(KindByteSequence, len(b), true)
	return v
}

// MakeDynamic creates a dynamic variant backed by a getter and an
// optional setter.
func (inst *Instance) MakeDynamic(getter, setter DynamicFunc) (*Variant, error) {
	if getter == nil {
		return nil, inst.setError(CodeInvalidValue, "dynamic variant requires a getter")
	}
	v := inst.acquire(KindDynamic)
	v.dyn = &dynamicValue{getter: getter, setter: setter}
	return v, nil
}

// MakeNative creates a native variant wrapping an external entity and its
// operation vtable.
func (inst *Instance) MakeNative(entity any, ops *NativeOps) (*Variant, error) {
	if entity == nil {
		return nil, inst.setError(CodeInvalidValue, "native variant requires an entity")
	}
	v := inst.acquire(KindNative)
	v.native = &nativeValue{entity: entity, ops: ops}
	return v, nil
}

// DynamicGetter returns the getter of a dynamic variant.
func (v *Variant) DynamicGetter() DynamicFunc {
	if v == nil || v.kind != KindDynamic {
		return nil
	}
	return v.dyn.getter
}

// DynamicSetter returns the setter of a dynamic variant.
func (v *Variant) DynamicSetter() DynamicFunc {
	if v == nil || v.kind != KindDynamic {
		return nil
	}
	return v.dyn.setter
}

// NativeEntity returns the entity wrapped by a native variant.
func (v *Variant) NativeEntity() any {
	if v == nil || v.kind != KindNative {
		return nil
	}
	return v.native.entity
}

// NativeGetOps returns the operation vtable of a native variant.
func (v *Variant) NativeGetOps() *NativeOps {
	if v == nil || v.kind != KindNative {
		return nil
	}
	return v.native.ops
}

// Boolean returns the payload of a boolean variant.
func (v *Variant) Boolean() (bool, error) {
	if v == nil || v.kind != KindBoolean {
		return false, &RuntimeError{Code: CodeWrongDataType, Detail: fmt.Sprintf("expected boolean, got %s", v.Kind())}
	}
	return v.b, nil
}

// Number returns the payload of a number variant.
func (v *Variant) Number() (float64, error) {
	if v == nil || v.kind != KindNumber {
		return 0, &RuntimeError{Code: CodeWrongDataType, Detail: fmt.Sprintf("expected number, got %s", v.Kind())}
	}
	return v.f, nil
}

// LongInt returns the payload of a long integer variant.
func (v *Variant) LongInt() (int64, error) {
	if v == nil || v.kind != KindLongInt {
		return 0, &RuntimeError{Code: CodeWrongDataType, Detail: fmt.Sprintf("expected longint, got %s", v.Kind())}
	}
	return v.i, nil
}

// LongDouble returns the payload of a long double variant.
func (v *Variant) LongDouble() (float64, error) {
	if v == nil || v.kind != KindLongDouble {
		return 0, &RuntimeError{Code: CodeWrongDataType, Detail: fmt.Sprintf("expected longdouble, got %s", v.Kind())}
	}
	return v.f, nil
}

// String returns the text of a string or atom string variant, or a debug
// rendering for every other kind.
func (v *Variant) String() string {
	if v == nil {
		return "(invalid)"
	}
	switch v.kind {
	case KindString, KindAtomString:
		return v.s
	default:
		return v.Stringify()
	}
}

// StringText returns the payload of a string-family variant.
func (v *Variant) StringText() (string, error) {
	if v == nil {
		return "", &RuntimeError{Code: CodeWrongDataType, Detail: "expected string, got invalid"}
	}
	switch v.kind {
	case KindString, KindAtomString:
		return v.s, nil
	}
	return "", &RuntimeError{Code: CodeWrongDataType, Detail: fmt.Sprintf("expected string, got %s", v.kind)}
}

// Bytes returns the payload of a byte sequence variant. The slice is
// owned by the variant and must not be modified.
func (v *Variant) Bytes() ([]byte, error) {
	if v == nil || v.kind != KindByteSequence {
		return nil, &RuntimeError{Code: CodeWrongDataType, Detail: fmt.Sprintf("expected bsequence, got %s", v.Kind())}
	}
	return v.seq, nil
}

// longPayloadThreshold mirrors the storage threshold above which string
// and byte payloads are flagged as long (separately accounted in the
// usage statistics).
const longPayloadThreshold = 200
