package purc

import (
	"bytes"
	"sort"
	"strings"
)

// Compare imposes one deterministic total order on all variants, used by
// the keyed set for both uniqueness and iteration order:
//
//   - the numeric kinds (number, longint, longdouble) compare as one
//     family by numeric value;
//   - string and atom string compare lexicographically by code point;
//   - byte sequences compare bytewise;
//   - containers compare by size, then member by member, and deep-equal
//     containers compare equal;
//   - values of otherwise incomparable kinds (dynamic, native) order by
//     a fixed kind rank, and ties fall back to the per-instance creation
//     serial, which is stable within one process.
//
// Both operands must be valid (non-nil) values.
func Compare(a, b *Variant) int {
	if a == nil || b == nil {
		panic("purc: compare with invalid variant")
	}
	if a == b {
		return 0
	}

	ra, rb := compareRank(a.kind), compareRank(b.kind)
	if ra != rb {
		return ra - rb
	}

	switch a.kind {
	case KindUndefined, KindNull:
		return 0
	case KindBoolean:
		return boolInt(a.b) - boolInt(b.b)
	case KindNumber, KindLongInt, KindLongDouble:
		return compareNumeric(a, b)
	case KindString, KindAtomString:
		return strings.Compare(a.s, b.s)
	case KindByteSequence:
		return bytes.Compare(a.seq, b.seq)
	case KindArray:
		return compareArrays(a, b)
	case KindObject:
		return compareObjects(a, b)
	case KindSet:
		return compareSets(a, b)
	}

	// dynamic, native
	return compareSerial(a, b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compareRank groups kinds that compare against each other and orders
// the groups.
func compareRank(k Kind) int {
	switch k {
	case KindUndefined:
		return 0
	case KindNull:
		return 1
	case KindBoolean:
		return 2
	case KindNumber, KindLongInt, KindLongDouble:
		return 3
	case KindString, KindAtomString:
		return 4
	case KindByteSequence:
		return 5
	case KindDynamic:
		return 6
	case KindNative:
		return 7
	case KindObject:
		return 8
	case KindArray:
		return 9
	case KindSet:
		return 10
	}
	return 11
}

func numericValue(v *Variant) float64 {
	if v.kind == KindLongInt {
		return float64(v.i)
	}
	return v.f
}

func compareNumeric(a, b *Variant) int {
	if a.kind == KindLongInt && b.kind == KindLongInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	fa, fb := numericValue(a), numericValue(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func compareArrays(a, b *Variant) int {
	la, lb := len(a.arr.elems), len(b.arr.elems)
	if la != lb {
		return la - lb
	}
	for i := 0; i < la; i++ {
		if d := Compare(a.arr.elems[i], b.arr.elems[i]); d != 0 {
			return d
		}
	}
	return 0
}

func sortedObjectKeys(data *objectData) []string {
	keys := make([]string, 0, len(data.entries))
	for _, e := range data.entries {
		keys = append(keys, e.key)
	}
	sort.Strings(keys)
	return keys
}

func compareObjects(a, b *Variant) int {
	la, lb := len(a.obj.entries), len(b.obj.entries)
	if la != lb {
		return la - lb
	}
	ka, kb := sortedObjectKeys(a.obj), sortedObjectKeys(b.obj)
	for i := range ka {
		if d := strings.Compare(ka[i], kb[i]); d != 0 {
			return d
		}
	}
	for _, k := range ka {
		va := a.obj.entries[a.obj.keys[k]].val
		vb := b.obj.entries[b.obj.keys[k]].val
		if d := Compare(va, vb); d != 0 {
			return d
		}
	}
	return 0
}

func compareSets(a, b *Variant) int {
	la, lb := len(a.set.arr), len(b.set.arr)
	if la != lb {
		return la - lb
	}
	na, nb := a.set.tree.first(), b.set.tree.first()
	for na != nil && nb != nil {
		if d := Compare(na.entry.elem, nb.entry.elem); d != 0 {
			return d
		}
		na, nb = rbNext(na), rbNext(nb)
	}
	return 0
}

func compareSerial(a, b *Variant) int {
	switch {
	case a.serial < b.serial:
		return -1
	case a.serial > b.serial:
		return 1
	}
	return 0
}
