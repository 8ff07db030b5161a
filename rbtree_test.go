package purc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treeKeys(t *rbTree) []int64 {
	var out []int64
	for n := t.first(); n != nil; n = rbNext(n) {
		out = append(out, n.entry.elem.i)
	}
	return out
}

func TestTreeKeepsSortedOrder(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	tree := &rbTree{}
	entries := make(map[int64]*setEntry)

	// scrambled but deterministic insertion order
	var keys []int64
	for i := int64(0); i < 101; i++ {
		keys = append(keys, (i*37)%101)
	}

	for _, k := range keys {
		v := inst.MakeLongInt(k)
		e := &setEntry{elem: v, kvs: []*Variant{v}}
		_, inserted := tree.insert(e, compareEntries)
		require.True(t, inserted, "key %d", k)
		entries[k] = e
	}

	t.Run("Duplicate insert reports the existing node", func(t *testing.T) {
		v := inst.MakeLongInt(50)
		defer inst.Unref(v)
		node, inserted := tree.insert(&setEntry{elem: v, kvs: []*Variant{v}}, compareEntries)
		assert.False(t, inserted)
		assert.Same(t, entries[50], node.entry)
	})

	got := treeKeys(tree)
	require.Len(t, got, 101)
	for i, k := range got {
		assert.Equal(t, int64(i), k)
	}

	t.Run("Reverse walk mirrors the forward walk", func(t *testing.T) {
		var rev []int64
		for n := tree.last(); n != nil; n = rbPrev(n) {
			rev = append(rev, n.entry.elem.i)
		}
		require.Len(t, rev, 101)
		for i, k := range rev {
			assert.Equal(t, int64(100-i), k)
		}
	})

	t.Run("Erase keeps the remainder sorted", func(t *testing.T) {
		for k := int64(0); k < 101; k += 2 {
			node := tree.find(entries[k], compareEntries)
			require.NotNil(t, node, "key %d", k)
			tree.erase(node)
			inst.Unref(entries[k].elem)
		}
		got := treeKeys(tree)
		require.Len(t, got, 50)
		for i, k := range got {
			assert.Equal(t, int64(2*i+1), k)
		}
	})

	for k := int64(1); k < 101; k += 2 {
		node := tree.find(entries[k], compareEntries)
		tree.erase(node)
		inst.Unref(entries[k].elem)
	}
	assert.Nil(t, tree.first())
}
