package purc

// arrayData backs an array variant: a positional sequence of owned
// members.
type arrayData struct {
	inst  *Instance
	elems []*Variant
}

// MakeArray creates an array variant, claiming a member reference on
// every initial member.
func (inst *Instance) MakeArray(members ...*Variant) (*Variant, error) {
	for _, m := range members {
		if m == nil {
			return nil, inst.setError(CodeInvalidValue, "array member must be a valid value")
		}
	}
	v := inst.acquire(KindArray)
	v.arr = &arrayData{
		inst:  inst,
		elems: make([]*Variant, 0, len(members)),
	}
	for _, m := range members {
		inst.refMember(v, m)
		v.arr.elems = append(v.arr.elems, m)
	}
	return v, nil
}

func (v *Variant) arrayData() (*arrayData, error) {
	if v == nil || v.kind != KindArray {
		return nil, &RuntimeError{Code: CodeWrongDataType, Detail: "expected array, got " + v.Kind().String()}
	}
	return v.arr, nil
}

// ArraySize returns the number of members.
func (v *Variant) ArraySize() (int, error) {
	data, err := v.arrayData()
	if err != nil {
		return 0, err
	}
	return len(data.elems), nil
}

// ArrayGet returns the member at index i. The reference stays owned by
// the array.
func (v *Variant) ArrayGet(i int) (*Variant, error) {
	data, err := v.arrayData()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(data.elems) {
		return nil, data.inst.setError(CodeOutOfBounds, "array index %d out of range [0,%d)", i, len(data.elems))
	}
	return data.elems[i], nil
}

// ArrayAppend appends val, claiming member references, and fires
// Grow(val).
func (v *Variant) ArrayAppend(val *Variant) error {
	data, err := v.arrayData()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "array member must be a valid value")
	}
	data.inst.refMember(v, val)
	data.elems = append(data.elems, val)
	firePost(v, OpGrow, val)
	return nil
}

// ArrayInsert inserts val before index i (i may equal the length to
// append) and fires Grow(val).
func (v *Variant) ArrayInsert(i int, val *Variant) error {
	data, err := v.arrayData()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "array member must be a valid value")
	}
	if i < 0 || i > len(data.elems) {
		return data.inst.setError(CodeOutOfBounds, "array index %d out of range [0,%d]", i, len(data.elems))
	}
	data.inst.refMember(v, val)
	data.elems = append(data.elems, nil)
	copy(data.elems[i+1:], data.elems[i:])
	data.elems[i] = val
	firePost(v, OpGrow, val)
	return nil
}

// ArraySet replaces the member at index i in place, firing
// Change(old, new). Replacing a slot with the identical value is a
// silent no-op.
func (v *Variant) ArraySet(i int, val *Variant) error {
	data, err := v.arrayData()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "array member must be a valid value")
	}
	if i < 0 || i >= len(data.elems) {
		return data.inst.setError(CodeOutOfBounds, "array index %d out of range [0,%d)", i, len(data.elems))
	}
	old := data.elems[i]
	if old == val {
		return nil
	}
	data.inst.refMember(v, val)
	data.elems[i] = val
	firePost(v, OpChange, old, val)
	data.inst.unrefMember(v, old)
	return nil
}

// ArrayRemove deletes the member at index i, firing Shrink(removed)
// before the array's reference is dropped.
func (v *Variant) ArrayRemove(i int) error {
	data, err := v.arrayData()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(data.elems) {
		return data.inst.setError(CodeOutOfBounds, "array index %d out of range [0,%d)", i, len(data.elems))
	}
	old := data.elems[i]
	data.elems = append(data.elems[:i], data.elems[i+1:]...)
	firePost(v, OpShrink, old)
	data.inst.unrefMember(v, old)
	return nil
}

// ArrayForEach visits members in positional order until fn returns
// false.
func (v *Variant) ArrayForEach(fn func(i int, val *Variant) bool) error {
	data, err := v.arrayData()
	if err != nil {
		return err
	}
	for i, m := range data.elems {
		if !fn(i, m) {
			break
		}
	}
	return nil
}
