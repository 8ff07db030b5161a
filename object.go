package purc

import "sort"

// objectData backs an object variant: string-keyed members kept in
// insertion order, with a key index for O(1) lookup.
type objectData struct {
	inst    *Instance
	keys    map[string]int // key -> entries index
	entries []objEntry
}

type objEntry struct {
	key string
	val *Variant
}

// MakeObject creates an empty object variant.
func (inst *Instance) MakeObject() *Variant {
	v := inst.acquire(KindObject)
	v.obj = &objectData{
		inst: inst,
		keys: make(map[string]int),
	}
	return v
}

// MakeObjectFrom creates an object variant from a map, claiming a
// member reference on every member. Keys are inserted in sorted order
// so the result is deterministic.
func (inst *Instance) MakeObjectFrom(members map[string]*Variant) (*Variant, error) {
	v := inst.MakeObject()

	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := v.ObjectSet(k, members[k]); err != nil {
			inst.Unref(v)
			return nil, err
		}
	}
	return v, nil
}

func (v *Variant) objectData() (*objectData, error) {
	if v == nil || v.kind != KindObject {
		return nil, &RuntimeError{Code: CodeWrongDataType, Detail: "expected object, got " + v.Kind().String()}
	}
	return v.obj, nil
}

// ObjectSize returns the number of members.
func (v *Variant) ObjectSize() (int, error) {
	data, err := v.objectData()
	if err != nil {
		return 0, err
	}
	return len(data.entries), nil
}

// ObjectKeys returns the member keys in insertion order.
func (v *Variant) ObjectKeys() ([]string, error) {
	data, err := v.objectData()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data.entries))
	for _, e := range data.entries {
		keys = append(keys, e.key)
	}
	return keys, nil
}

// ObjectGet returns the member stored under key. The reference stays
// owned by the object; callers that retain the value must Ref it.
func (v *Variant) ObjectGet(key string) (*Variant, error) {
	data, err := v.objectData()
	if err != nil {
		return nil, err
	}
	i, ok := data.keys[key]
	if !ok {
		return nil, data.inst.setError(CodeNotFound, "object has no member %q", key)
	}
	return data.entries[i].val, nil
}

// ObjectSet stores val under key, claiming member references on it.
// Storing under a new key fires Grow(val); overwriting fires
// Change(old, new). Overwriting a key with the identical value is a
// silent no-op.
func (v *Variant) ObjectSet(key string, val *Variant) error {
	data, err := v.objectData()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "object member must be a valid value")
	}

	if i, ok := data.keys[key]; ok {
		old := data.entries[i].val
		if old == val {
			return nil
		}
		data.inst.refMember(v, val)
		data.entries[i].val = val
		firePost(v, OpChange, old, val)
		data.inst.unrefMember(v, old)
		return nil
	}

	data.inst.refMember(v, val)
	data.keys[key] = len(data.entries)
	data.entries = append(data.entries, objEntry{key: key, val: val})
	firePost(v, OpGrow, val)
	return nil
}

// ObjectRemove deletes the member stored under key, firing
// Shrink(removed) before the object's reference is dropped.
func (v *Variant) ObjectRemove(key string) error {
	data, err := v.objectData()
	if err != nil {
		return err
	}
	i, ok := data.keys[key]
	if !ok {
		return data.inst.setError(CodeNotFound, "object has no member %q", key)
	}

	old := data.entries[i].val
	data.entries = append(data.entries[:i], data.entries[i+1:]...)
	delete(data.keys, key)
	for j := i; j < len(data.entries); j++ {
		data.keys[data.entries[j].key] = j
	}

	firePost(v, OpShrink, old)
	data.inst.unrefMember(v, old)
	return nil
}

// ObjectForEach visits members in insertion order until fn returns
// false.
func (v *Variant) ObjectForEach(fn func(key string, val *Variant) bool) error {
	data, err := v.objectData()
	if err != nil {
		return err
	}
	for _, e := range data.entries {
		if !fn(e.key, e.val) {
			break
		}
	}
	return nil
}
