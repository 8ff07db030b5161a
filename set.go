package purc

import (
	"sort"
	"strings"
)

// setData backs a set variant. Members are indexed twice: a red-black
// tree ordered by the key tuple enforces uniqueness and gives ordered
// iteration, and a dense positional array gives O(1) access by index.
type setData struct {
	inst      *Instance
	uniqueKey string   // original key spec, "" for keyless sets
	keyNames  []string // parsed key names, empty for keyless sets
	tree      rbTree
	arr       []*setEntry
	extraSize int
}

// setEntry is one member plus its captured key tuple. The key values
// are borrowed pointers resolved at insertion time; they hold no
// references of their own.
type setEntry struct {
	elem *Variant
	kvs  []*Variant
	idx  int
}

// Estimated bookkeeping bytes per entry (entry, tree node, array slot),
// reported to the usage statistics.
const setEntrySize = 96

// MakeSet creates a set variant. keySpec is a whitespace-separated list
// of member keys forming the uniqueness tuple; an empty spec makes a
// keyless set where the whole value is its own key. Each initial member
// is added as by SetAdd without override; a duplicate among them fails
// the construction.
func (inst *Instance) MakeSet(keySpec string, members ...*Variant) (*Variant, error) {
	v := inst.acquire(KindSet)
	v.flags |= FlagExtraSize
	v.set = &setData{
		inst:      inst,
		uniqueKey: keySpec,
		keyNames:  strings.Fields(keySpec),
		arr:       make([]*setEntry, 0, len(members)),
	}
	for _, m := range members {
		if err := v.SetAdd(m, false); err != nil {
			inst.Unref(v)
			return nil, err
		}
	}
	return v, nil
}

func (v *Variant) setDataOf() (*setData, error) {
	if v == nil || v.kind != KindSet {
		return nil, &RuntimeError{Code: CodeWrongDataType, Detail: "expected set, got " + v.Kind().String()}
	}
	return v.set, nil
}

// SetUniqueKeys returns the parsed key names, or nil for a keyless set.
func (v *Variant) SetUniqueKeys() ([]string, error) {
	data, err := v.setDataOf()
	if err != nil {
		return nil, err
	}
	return data.keyNames, nil
}

// SetSize returns the number of members.
func (v *Variant) SetSize() (int, error) {
	data, err := v.setDataOf()
	if err != nil {
		return 0, err
	}
	return len(data.arr), nil
}

// captureKVs resolves the key tuple of elem. For keyed sets a member
// key missing from elem (or elem not being an object) resolves to the
// undefined constant; for keyless sets the value itself is the tuple.
func (data *setData) captureKVs(elem *Variant) []*Variant {
	if len(data.keyNames) == 0 {
		return []*Variant{elem}
	}
	kvs := make([]*Variant, len(data.keyNames))
	for i, name := range data.keyNames {
		kvs[i] = data.inst.undef
		if elem.kind == KindObject {
			if j, ok := elem.obj.keys[name]; ok {
				kvs[i] = elem.obj.entries[j].val
			}
		}
	}
	return kvs
}

func compareEntries(a, b *setEntry) int {
	for i := range a.kvs {
		if d := Compare(a.kvs[i], b.kvs[i]); d != 0 {
			return d
		}
	}
	return 0
}

// refreshArr renumbers the positional indexes from i on.
func (data *setData) refreshArr(i int) {
	for ; i < len(data.arr); i++ {
		data.arr[i].idx = i
	}
}

// SetAdd adds val to the set, claiming member references on it, and fires
// Grow(val). If a member with the same key tuple exists: without
// override the add fails with a duplicate error; with override the
// existing member is replaced in place at its index, firing
// Change(old, val). Overriding a member with the identical value is a
// silent no-op.
func (v *Variant) SetAdd(val *Variant, override bool) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "set member must be a valid value")
	}

	probe := &setEntry{elem: val, kvs: data.captureKVs(val)}
	node, inserted := data.tree.insert(probe, compareEntries)
	if !inserted {
		entry := node.entry
		if !override {
			return data.inst.setError(CodeDuplicatedKey, "set already has a member with this key")
		}
		if entry.elem == val {
			return nil
		}
		old := entry.elem
		data.inst.refMember(v, val)
		entry.elem = val
		entry.kvs = probe.kvs
		firePost(v, OpChange, old, val)
		data.inst.unrefMember(v, old)
		return nil
	}

	data.inst.refMember(v, val)
	probe.idx = len(data.arr)
	data.arr = append(data.arr, probe)
	data.extraSize += setEntrySize
	data.inst.statExtra(KindSet, setEntrySize, true)
	firePost(v, OpGrow, val)
	return nil
}

// removeEntry unlinks an entry from both indexes, fires Shrink(removed)
// and drops the set's reference.
func (data *setData) removeEntry(v *Variant, node *rbNode) {
	entry := node.entry
	data.tree.erase(node)
	data.arr = append(data.arr[:entry.idx], data.arr[entry.idx+1:]...)
	data.refreshArr(entry.idx)
	data.extraSize -= setEntrySize
	data.inst.statExtra(KindSet, setEntrySize, false)

	old := entry.elem
	entry.elem = nil
	entry.kvs = nil
	firePost(v, OpShrink, old)
	data.inst.unrefMember(v, old)
}

// findByKeyValues locates the entry whose key tuple equals keyVals.
// Keyless sets have no key fields to match against.
func (data *setData) findByKeyValues(keyVals []*Variant) (*rbNode, error) {
	want := len(data.keyNames)
	if want == 0 {
		return nil, data.inst.setError(CodeNotSupported,
			"keyless set does not support by-key-values access")
	}
	if len(keyVals) != want {
		return nil, data.inst.setError(CodeInvalidValue,
			"set expects %d key value(s), got %d", want, len(keyVals))
	}
	probe := &setEntry{kvs: keyVals}
	return data.tree.find(probe, compareEntries), nil
}

// SetGetByKeyValues returns the member whose key tuple equals keyVals,
// one value per key name (a keyless set takes the value itself). The
// reference stays owned by the set.
func (v *Variant) SetGetByKeyValues(keyVals ...*Variant) (*Variant, error) {
	data, err := v.setDataOf()
	if err != nil {
		return nil, err
	}
	node, err := data.findByKeyValues(keyVals)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, data.inst.setError(CodeNotFound, "set has no member with this key")
	}
	return node.entry.elem, nil
}

// SetRemoveByKeyValues removes the member whose key tuple equals
// keyVals, firing Shrink(removed).
func (v *Variant) SetRemoveByKeyValues(keyVals ...*Variant) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	node, err := data.findByKeyValues(keyVals)
	if err != nil {
		return err
	}
	if node == nil {
		return data.inst.setError(CodeNotFound, "set has no member with this key")
	}
	data.removeEntry(v, node)
	return nil
}

// SetRemove removes the member whose key tuple matches val's, firing
// Shrink(removed). val itself need not be the stored member.
func (v *Variant) SetRemove(val *Variant) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "set member must be a valid value")
	}
	probe := &setEntry{elem: val, kvs: data.captureKVs(val)}
	node := data.tree.find(probe, compareEntries)
	if node == nil {
		return data.inst.setError(CodeNotFound, "set has no member with this key")
	}
	data.removeEntry(v, node)
	return nil
}

// SetGetByIndex returns the member at positional index i. The reference
// stays owned by the set.
func (v *Variant) SetGetByIndex(i int) (*Variant, error) {
	data, err := v.setDataOf()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(data.arr) {
		return nil, data.inst.setError(CodeOutOfBounds, "set index %d out of range [0,%d)", i, len(data.arr))
	}
	return data.arr[i].elem, nil
}

// SetRemoveByIndex removes the member at positional index i, firing
// Shrink(removed). Members after i shift down one position.
func (v *Variant) SetRemoveByIndex(i int) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(data.arr) {
		return data.inst.setError(CodeOutOfBounds, "set index %d out of range [0,%d)", i, len(data.arr))
	}
	entry := data.arr[i]
	node := data.tree.find(entry, compareEntries)
	data.removeEntry(v, node)
	return nil
}

// SetSetByIndex replaces the member at positional index i as a
// remove-then-add: the old member leaves with Shrink and the new one is
// appended with Grow, landing at the end of the positional order.
// Replacing a slot with the identical value is a silent no-op, and a
// new value whose key tuple clashes with a different existing member
// fails with DuplicatedKey before anything changes.
func (v *Variant) SetSetByIndex(i int, val *Variant) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	if val == nil {
		return data.inst.setError(CodeInvalidValue, "set member must be a valid value")
	}
	if i < 0 || i >= len(data.arr) {
		return data.inst.setError(CodeOutOfBounds, "set index %d out of range [0,%d)", i, len(data.arr))
	}

	entry := data.arr[i]
	if entry.elem == val {
		return nil
	}

	probe := &setEntry{elem: val, kvs: data.captureKVs(val)}
	if node := data.tree.find(probe, compareEntries); node != nil && node.entry != entry {
		return data.inst.setError(CodeDuplicatedKey, "set already has a member with this key")
	}

	// Keep val alive across the removal in case the outgoing member was
	// its last owner.
	data.inst.Ref(val)
	oldNode := data.tree.find(entry, compareEntries)
	data.removeEntry(v, oldNode)
	err = v.SetAdd(val, false)
	data.inst.Unref(val)
	return err
}

// SetSort reorders the positional array with cmp, leaving the key index
// and ordered iteration untouched.
func (v *Variant) SetSort(cmp func(a, b *Variant) int) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	if cmp == nil {
		cmp = Compare
	}
	sort.SliceStable(data.arr, func(i, j int) bool {
		return cmp(data.arr[i].elem, data.arr[j].elem) < 0
	})
	data.refreshArr(0)
	return nil
}

// SetSwap exchanges the members at positional indexes i and j.
func (v *Variant) SetSwap(i, j int) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(data.arr) || j < 0 || j >= len(data.arr) {
		return data.inst.setError(CodeOutOfBounds, "set swap indexes %d,%d out of range [0,%d)", i, j, len(data.arr))
	}
	data.arr[i], data.arr[j] = data.arr[j], data.arr[i]
	data.arr[i].idx = i
	data.arr[j].idx = j
	return nil
}

// SetForEach visits members in positional order until fn returns false.
func (v *Variant) SetForEach(fn func(i int, val *Variant) bool) error {
	data, err := v.setDataOf()
	if err != nil {
		return err
	}
	for i, e := range data.arr {
		if !fn(i, e.elem) {
			break
		}
	}
	return nil
}

// SetIterator walks a set in key order. The neighbor nodes are cached
// on every move, so removing the current member keeps the iterator
// usable; any other concurrent mutation invalidates it.
type SetIterator struct {
	set  *setData
	curr *rbNode
	prev *rbNode
	next *rbNode
}

func (it *SetIterator) cache() {
	if it.curr == nil {
		it.prev, it.next = nil, nil
		return
	}
	it.prev = rbPrev(it.curr)
	it.next = rbNext(it.curr)
}

// SetIteratorBegin returns an iterator at the smallest member. An empty
// set has nothing to iterate and fails with NotFound.
func (v *Variant) SetIteratorBegin() (*SetIterator, error) {
	data, err := v.setDataOf()
	if err != nil {
		return nil, err
	}
	first := data.tree.first()
	if first == nil {
		return nil, data.inst.setError(CodeNotFound, "set is empty")
	}
	it := &SetIterator{set: data, curr: first}
	it.cache()
	return it, nil
}

// SetIteratorEnd returns an iterator at the largest member. An empty
// set has nothing to iterate and fails with NotFound.
func (v *Variant) SetIteratorEnd() (*SetIterator, error) {
	data, err := v.setDataOf()
	if err != nil {
		return nil, err
	}
	last := data.tree.last()
	if last == nil {
		return nil, data.inst.setError(CodeNotFound, "set is empty")
	}
	it := &SetIterator{set: data, curr: last}
	it.cache()
	return it, nil
}

// Value returns the member under the iterator, or nil once the
// iterator has moved off either end.
func (it *SetIterator) Value() *Variant {
	if it.curr == nil || it.curr.entry == nil {
		return nil
	}
	return it.curr.entry.elem
}

// Next advances to the successor, reporting false at the end.
func (it *SetIterator) Next() bool {
	if it.curr != nil && it.curr.entry != nil {
		it.next = rbNext(it.curr)
	}
	it.curr = it.next
	it.cache()
	return it.curr != nil
}

// Prev steps back to the predecessor, reporting false at the start.
func (it *SetIterator) Prev() bool {
	if it.curr != nil && it.curr.entry != nil {
		it.prev = rbPrev(it.curr)
	}
	it.curr = it.prev
	it.cache()
	return it.curr != nil
}
