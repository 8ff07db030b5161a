package purc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeRecord builds {"id": id, "name": name} and hands ownership to the
// caller.
func makeRecord(t *testing.T, inst *Instance, id int64, name string) *Variant {
	t.Helper()
	obj := inst.MakeObject()
	idv := inst.MakeLongInt(id)
	require.NoError(t, obj.ObjectSet("id", idv))
	inst.Unref(idv)
	namev, err := inst.MakeString(name)
	require.NoError(t, err)
	require.NoError(t, obj.ObjectSet("name", namev))
	inst.Unref(namev)
	return obj
}

func recordID(t *testing.T, v *Variant) int64 {
	t.Helper()
	idv, err := v.ObjectGet("id")
	require.NoError(t, err)
	id, err := idv.LongInt()
	require.NoError(t, err)
	return id
}

func TestSetAddAndLookup(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	keys, err := set.SetUniqueKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, keys)

	r1 := makeRecord(t, inst, 1, "one")
	r2 := makeRecord(t, inst, 2, "two")
	defer inst.Unref(r1)
	defer inst.Unref(r2)

	require.NoError(t, set.SetAdd(r1, false))
	require.NoError(t, set.SetAdd(r2, false))

	n, err := set.SetSize()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	t.Run("Duplicate key fails without override", func(t *testing.T) {
		dup := makeRecord(t, inst, 1, "other one")
		defer inst.Unref(dup)
		err := set.SetAdd(dup, false)
		assert.Equal(t, CodeDuplicatedKey, CodeOf(err))
		n, _ := set.SetSize()
		assert.Equal(t, 2, n)
	})

	t.Run("Lookup by key values", func(t *testing.T) {
		key := inst.MakeLongInt(2)
		defer inst.Unref(key)
		got, err := set.SetGetByKeyValues(key)
		require.NoError(t, err)
		assert.Same(t, r2, got)

		missing := inst.MakeLongInt(99)
		defer inst.Unref(missing)
		_, err = set.SetGetByKeyValues(missing)
		assert.Equal(t, CodeNotFound, CodeOf(err))

		_, err = set.SetGetByKeyValues(key, key)
		assert.Equal(t, CodeInvalidValue, CodeOf(err))
	})

	t.Run("Lookup by index", func(t *testing.T) {
		got, err := set.SetGetByIndex(0)
		require.NoError(t, err)
		assert.Same(t, r1, got)
		_, err = set.SetGetByIndex(5)
		assert.Equal(t, CodeOutOfBounds, CodeOf(err))
	})
}

func TestSetOverrideKeepsIndex(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	r1 := makeRecord(t, inst, 1, "one")
	r2 := makeRecord(t, inst, 2, "two")
	require.NoError(t, set.SetAdd(r1, false))
	require.NoError(t, set.SetAdd(r2, false))
	inst.Unref(r2)

	var fired []Op
	_, err = inst.RegisterPostListener(set, OpChange, nil, nil,
		func(source *Variant, op Op, ctxt any, args []*Variant) bool {
			fired = append(fired, op)
			return true
		})
	require.NoError(t, err)

	replacement := makeRecord(t, inst, 1, "ONE")
	defer inst.Unref(replacement)
	require.NoError(t, set.SetAdd(replacement, true))
	assert.Equal(t, []Op{OpChange}, fired)

	// replaced member keeps position 0
	got, err := set.SetGetByIndex(0)
	require.NoError(t, err)
	assert.Same(t, replacement, got)

	// the old member's reference moved off the set
	assert.Equal(t, uint32(1), r1.RefCount())
	inst.Unref(r1)

	t.Run("Overriding with the identical member is silent", func(t *testing.T) {
		require.NoError(t, set.SetAdd(replacement, true))
		assert.Equal(t, []Op{OpChange}, fired)
	})
}

func TestSetRemoveRenumbers(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	for id := int64(1); id <= 3; id++ {
		r := makeRecord(t, inst, id, "r")
		require.NoError(t, set.SetAdd(r, false))
		inst.Unref(r)
	}

	require.NoError(t, set.SetRemoveByIndex(0))

	n, err := set.SetSize()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	for i, want := range []int64{2, 3} {
		got, err := set.SetGetByIndex(i)
		require.NoError(t, err)
		assert.Equal(t, want, recordID(t, got))
	}

	key := inst.MakeLongInt(3)
	defer inst.Unref(key)
	require.NoError(t, set.SetRemoveByKeyValues(key))
	n, _ = set.SetSize()
	assert.Equal(t, 1, n)
	assert.Equal(t, CodeNotFound, CodeOf(set.SetRemoveByKeyValues(key)))
}

func TestSetSetByIndex(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	r1 := makeRecord(t, inst, 1, "one")
	r2 := makeRecord(t, inst, 2, "two")
	require.NoError(t, set.SetAdd(r1, false))
	require.NoError(t, set.SetAdd(r2, false))
	inst.Unref(r1)
	inst.Unref(r2)

	var fired []Op
	for _, op := range []Op{OpGrow, OpShrink, OpChange} {
		_, err := inst.RegisterPostListener(set, op, nil, nil,
			func(source *Variant, op Op, ctxt any, args []*Variant) bool {
				fired = append(fired, op)
				return true
			})
		require.NoError(t, err)
	}

	t.Run("Identical value is a silent no-op", func(t *testing.T) {
		got, err := set.SetGetByIndex(0)
		require.NoError(t, err)
		require.NoError(t, set.SetSetByIndex(0, got))
		assert.Empty(t, fired)
	})

	t.Run("Same key still removes then appends", func(t *testing.T) {
		repl := makeRecord(t, inst, 1, "ONE")
		defer inst.Unref(repl)
		require.NoError(t, set.SetSetByIndex(0, repl))
		assert.Equal(t, []Op{OpShrink, OpGrow}, fired)
		fired = nil

		// the replacement lands at the end of the positional order
		got, err := set.SetGetByIndex(1)
		require.NoError(t, err)
		assert.Same(t, repl, got)
		got, err = set.SetGetByIndex(0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), recordID(t, got))
	})

	t.Run("Key clash with another member leaves the set unchanged", func(t *testing.T) {
		// positional order is now [id:2, id:1]; id:2 belongs to slot 0
		clash := makeRecord(t, inst, 2, "TWO")
		defer inst.Unref(clash)
		err := set.SetSetByIndex(1, clash)
		assert.Equal(t, CodeDuplicatedKey, CodeOf(err))
		assert.Empty(t, fired)
		n, _ := set.SetSize()
		assert.Equal(t, 2, n)
	})

	t.Run("New key removes then appends", func(t *testing.T) {
		fresh := makeRecord(t, inst, 3, "three")
		defer inst.Unref(fresh)
		require.NoError(t, set.SetSetByIndex(0, fresh))
		assert.Equal(t, []Op{OpShrink, OpGrow}, fired)

		// the survivor shifts to the front, the new member lands last
		got0, err := set.SetGetByIndex(0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), recordID(t, got0))
		got1, err := set.SetGetByIndex(1)
		require.NoError(t, err)
		assert.Same(t, fresh, got1)
	})
}

func TestSetOrderedIteration(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	for _, id := range []int64{3, 1, 2} {
		r := makeRecord(t, inst, id, "r")
		require.NoError(t, set.SetAdd(r, false))
		inst.Unref(r)
	}

	t.Run("Forward", func(t *testing.T) {
		it, err := set.SetIteratorBegin()
		require.NoError(t, err)
		var ids []int64
		for it != nil && it.Value() != nil {
			ids = append(ids, recordID(t, it.Value()))
			if !it.Next() {
				break
			}
		}
		assert.Equal(t, []int64{1, 2, 3}, ids)
	})

	t.Run("Backward", func(t *testing.T) {
		it, err := set.SetIteratorEnd()
		require.NoError(t, err)
		var ids []int64
		for it != nil && it.Value() != nil {
			ids = append(ids, recordID(t, it.Value()))
			if !it.Prev() {
				break
			}
		}
		assert.Equal(t, []int64{3, 2, 1}, ids)
	})

	t.Run("Removing the current member keeps the iterator usable", func(t *testing.T) {
		it, err := set.SetIteratorBegin()
		require.NoError(t, err)
		require.True(t, it.Next()) // now at id 2

		probe := makeRecord(t, inst, 2, "probe")
		require.NoError(t, set.SetRemove(probe))
		inst.Unref(probe)

		require.True(t, it.Next())
		assert.Equal(t, int64(3), recordID(t, it.Value()))
	})
}

func TestSetSortAndSwap(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	for _, id := range []int64{2, 3, 1} {
		r := makeRecord(t, inst, id, "r")
		require.NoError(t, set.SetAdd(r, false))
		inst.Unref(r)
	}

	// sort positionally by descending id
	require.NoError(t, set.SetSort(func(a, b *Variant) int {
		return -Compare(a, b)
	}))
	var ids []int64
	require.NoError(t, set.SetForEach(func(i int, v *Variant) bool {
		ids = append(ids, recordID(t, v))
		return true
	}))
	assert.Equal(t, []int64{3, 2, 1}, ids)

	// key order is untouched by the sort
	it, err := set.SetIteratorBegin()
	require.NoError(t, err)
	assert.Equal(t, int64(1), recordID(t, it.Value()))

	require.NoError(t, set.SetSwap(0, 2))
	got, err := set.SetGetByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), recordID(t, got))

	// lookups still work after positional reordering
	key := inst.MakeLongInt(3)
	defer inst.Unref(key)
	require.NoError(t, set.SetRemoveByKeyValues(key))
	n, _ := set.SetSize()
	assert.Equal(t, 2, n)
}

func TestKeylessSet(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	one := inst.MakeLongInt(1)
	two := inst.MakeLongInt(2)
	defer inst.Unref(one)
	defer inst.Unref(two)

	set, err := inst.MakeSet("", one, two)
	require.NoError(t, err)
	defer inst.Unref(set)

	keys, err := set.SetUniqueKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	t.Run("Whole value is the key", func(t *testing.T) {
		alsoOne := inst.MakeLongInt(1)
		defer inst.Unref(alsoOne)
		assert.Equal(t, CodeDuplicatedKey, CodeOf(set.SetAdd(alsoOne, false)))

		// removal matches by value identity under the total order
		require.NoError(t, set.SetRemove(alsoOne))
		n, err := set.SetSize()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		got, err := set.SetGetByIndex(0)
		require.NoError(t, err)
		assert.Same(t, two, got)
	})

	t.Run("Deep-equal containers are duplicates too", func(t *testing.T) {
		a1, err := inst.MakeArray(one)
		require.NoError(t, err)
		a2, err := inst.MakeArray(one)
		require.NoError(t, err)
		defer inst.Unref(a1)
		defer inst.Unref(a2)

		require.NoError(t, set.SetAdd(a1, false))
		assert.Equal(t, CodeDuplicatedKey, CodeOf(set.SetAdd(a2, false)))
		require.NoError(t, set.SetRemove(a2))
	})

	t.Run("By-key-values access is not supported", func(t *testing.T) {
		_, err := set.SetGetByKeyValues(one)
		assert.Equal(t, CodeNotSupported, CodeOf(err))
		assert.Equal(t, CodeNotSupported, CodeOf(set.SetRemoveByKeyValues(one)))
	})

	t.Run("Constructor rejects duplicates", func(t *testing.T) {
		_, err := inst.MakeSet("", two, two)
		assert.Equal(t, CodeDuplicatedKey, CodeOf(err))
	})
}

func TestSetIteratorOnEmptySet(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	set, err := inst.MakeSet("id")
	require.NoError(t, err)
	defer inst.Unref(set)

	_, err = set.SetIteratorBegin()
	assert.Equal(t, CodeNotFound, CodeOf(err))
	_, err = set.SetIteratorEnd()
	assert.Equal(t, CodeNotFound, CodeOf(err))
}
