package purc

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Numberify coerces any value to a number: booleans become 0 or 1,
// strings parse their longest leading numeric prefix (no prefix is 0),
// byte sequences count their length, arrays and sets sum their members,
// objects sum their member values, and everything else is 0.
func (v *Variant) Numberify() float64 {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindBoolean:
		if v.b {
			return 1
		}
		return 0
	case KindNumber, KindLongDouble:
		return v.f
	case KindLongInt:
		return float64(v.i)
	case KindString, KindAtomString:
		return parseNumberPrefix(v.s)
	case KindByteSequence:
		return float64(len(v.seq))
	case KindArray:
		sum := 0.0
		for _, m := range v.arr.elems {
			sum += m.Numberify()
		}
		return sum
	case KindObject:
		sum := 0.0
		for _, e := range v.obj.entries {
			sum += e.val.Numberify()
		}
		return sum
	case KindSet:
		sum := 0.0
		for _, e := range v.set.arr {
			sum += e.elem.Numberify()
		}
		return sum
	}
	return 0
}

// Booleanize coerces any value to a boolean: containers are true when
// they have members, anything else is true when it numberifies to a
// non-zero value.
func (v *Variant) Booleanize() bool {
	if v == nil {
		return false
	}
	switch v.kind {
	case KindObject:
		return len(v.obj.entries) > 0
	case KindArray:
		return len(v.arr.elems) > 0
	case KindSet:
		return len(v.set.arr) > 0
	}
	return v.Numberify() != 0
}

// parseNumberPrefix parses the longest leading float prefix of s,
// returning 0 when there is none.
func parseNumberPrefix(s string) float64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits = true
		}
	}
	if !digits {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := false
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			expDigits = true
		}
		if expDigits {
			i = j
		}
	}
	f, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return 0
	}
	return f
}

// Stringify renders any value as text: scalars render their payload
// ("undefined", "null", "true", numbers in shortest form), containers
// render as JSON, byte sequences render as lowercase hex, and dynamic
// and native values render a placeholder.
func (v *Variant) Stringify() string {
	if v == nil {
		return "(invalid)"
	}
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber, KindLongDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindLongInt:
		return strconv.FormatInt(v.i, 10)
	case KindString, KindAtomString:
		return v.s
	case KindByteSequence:
		const hex = "0123456789abcdef"
		out := make([]byte, 0, len(v.seq)*2)
		for _, b := range v.seq {
			out = append(out, hex[b>>4], hex[b&0xf])
		}
		return string(out)
	case KindDynamic:
		return "<dynamic>"
	case KindNative:
		return "<native>"
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.kind.String() + ">"
	}
	return string(data)
}

// MarshalJSON serializes a value as JSON. Undefined serializes as
// null, byte sequences as base64 strings, sets as arrays in positional
// order, objects in insertion order. Dynamic and native values do not
// serialize.
func (v *Variant) MarshalJSON() ([]byte, error) {
	if v == nil {
		return nil, &RuntimeError{Code: CodeInvalidValue, Detail: "cannot serialize invalid value"}
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return []byte("null"), nil
	case KindBoolean:
		return json.Marshal(v.b)
	case KindNumber, KindLongDouble:
		return json.Marshal(v.f)
	case KindLongInt:
		return json.Marshal(v.i)
	case KindString, KindAtomString:
		return json.Marshal(v.s)
	case KindByteSequence:
		return json.Marshal(v.seq)
	case KindArray:
		return marshalMembers(len(v.arr.elems), func(i int) *Variant { return v.arr.elems[i] })
	case KindSet:
		return marshalMembers(len(v.set.arr), func(i int) *Variant { return v.set.arr[i].elem })
	case KindObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, e := range v.obj.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := e.val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, &RuntimeError{Code: CodeNotSupported, Detail: "cannot serialize a " + v.kind.String() + " value"}
}

func marshalMembers(n int, member func(i int) *Variant) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := member(i).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MakeFromJSON parses JSON into a value tree: JSON null becomes null,
// numbers become number variants, arrays become arrays, and objects
// become object variants with sorted keys.
func (inst *Instance) MakeFromJSON(data []byte) (*Variant, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, inst.setError(CodeInvalidValue, "invalid JSON: %v", err)
	}
	return inst.makeFromDecoded(raw)
}

func (inst *Instance) makeFromDecoded(raw any) (*Variant, error) {
	switch x := raw.(type) {
	case nil:
		return inst.MakeNull(), nil
	case bool:
		return inst.MakeBoolean(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return inst.MakeLongInt(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, inst.setError(CodeInvalidValue, "invalid JSON number %q", x.String())
		}
		return inst.MakeNumber(f), nil
	case string:
		return inst.MakeString(x)
	case []any:
		arr, err := inst.MakeArray()
		if err != nil {
			return nil, err
		}
		for _, item := range x {
			m, err := inst.makeFromDecoded(item)
			if err != nil {
				inst.Unref(arr)
				return nil, err
			}
			err = arr.ArrayAppend(m)
			inst.Unref(m)
			if err != nil {
				inst.Unref(arr)
				return nil, err
			}
		}
		return arr, nil
	case map[string]any:
		members := make(map[string]*Variant, len(x))
		fail := func() {
			for _, m := range members {
				inst.Unref(m)
			}
		}
		for k, item := range x {
			m, err := inst.makeFromDecoded(item)
			if err != nil {
				fail()
				return nil, err
			}
			members[k] = m
		}
		obj, err := inst.MakeObjectFrom(members)
		for _, m := range members {
			inst.Unref(m)
		}
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	return nil, inst.setError(CodeNotSupported, "cannot convert decoded JSON value")
}
