package purc

// Reference counting with transitive container ownership.
//
// Every reference to a container claims a transitive reference on each
// member, so the claims a member holds from its container always equal
// the container's own refcount: Ref on a container recurses, Unref
// recurses for every decrement except the destroying one (at zero the
// kind's release routine drops the last member claim instead), and a
// member entering or leaving a container is claimed or released once
// per reference the container currently carries. Ref(c) followed by
// Unref(c) therefore leaves every transitively owned member's refcount
// unchanged, and members may come and go while the container is
// multiply referenced.
//
// Member graphs must be acyclic; recursion over a cyclic graph does not
// terminate. Intentional back-links belong outside the ownership model
// (borrowed pointers such as set key-tuples).

// releaseFunc releases the resources owned by one kind of value once its
// refcount reaches zero.
type releaseFunc func(inst *Instance, v *Variant)

// Populated in init: the container release routines call Unref, which
// consults this table, so a composite-literal initializer would be an
// initialization cycle.
var releasers [kindMax]releaseFunc

func init() {
	releasers = [kindMax]releaseFunc{
		KindString:       releaseString,
		KindAtomString:   nil, // text owned by the atom table
		KindByteSequence: releaseByteSequence,
		KindNative:       releaseNative,
		KindObject:       releaseObject,
		KindArray:        releaseArray,
		KindSet:          releaseSet,
	}
}

// refMember claims the references a container owes a member that just
// entered it: one per reference the container itself carries.
func (inst *Instance) refMember(container, member *Variant) {
	for n := container.refc; n > 0; n-- {
		inst.Ref(member)
	}
}

// unrefMember releases a leaving member's claims, mirroring the
// container's current refcount.
func (inst *Instance) unrefMember(container, member *Variant) {
	for n := container.refc; n > 0; n-- {
		inst.Unref(member)
	}
}

// Ref claims one reference on a value. For container kinds the claim is
// transitive: every member is referenced as well. Returns the new count.
// Referencing the invalid value is a fatal programming defect.
func (inst *Instance) Ref(v *Variant) uint32 {
	if v == nil {
		panic("purc: ref of invalid variant")
	}

	switch v.kind {
	case KindObject:
		for _, e := range v.obj.entries {
			inst.Ref(e.val)
		}
	case KindArray:
		for _, m := range v.arr.elems {
			inst.Ref(m)
		}
	case KindSet:
		for _, e := range v.set.arr {
			inst.Ref(e.elem)
		}
	}

	v.refc++
	return v.refc
}

// Unref drops one reference. Dropping the last reference runs the
// kind's release routine and returns the value's backing memory to the
// instance reuse pool. Unref of the invalid value or of a value whose
// refcount is already zero is a fatal programming defect.
func (inst *Instance) Unref(v *Variant) uint32 {
	if v == nil {
		panic("purc: unref of invalid variant")
	}
	if v.refc == 0 {
		panic("purc: refcount underflow")
	}

	// Transitive claims ride on the non-final references; the final
	// reference's claim is the entry ownership released below.
	if v.refc > 1 {
		switch v.kind {
		case KindObject:
			for _, e := range v.obj.entries {
				inst.Unref(e.val)
			}
		case KindArray:
			for _, m := range v.arr.elems {
				inst.Unref(m)
			}
		case KindSet:
			for _, e := range v.set.arr {
				inst.Unref(e.elem)
			}
		}
	}

	v.refc--
	if v.refc > 0 {
		return v.refc
	}

	destroyListeners(v)

	if release := releasers[v.kind]; release != nil {
		release(inst, v)
	}

	if v.flags&FlagNoFree == 0 {
		inst.put(v)
	}
	return 0
}

func releaseString(inst *Instance, v *Variant) {
	inst.statExtra(KindString, len(v.s), false)
	v.s = ""
}

func releaseByteSequence(inst *Instance, v *Variant) {
	inst.statExtra(KindByteSequence, len(v.seq), false)
	v.seq = nil
}

func releaseNative(inst *Instance, v *Variant) {
	n := v.native
	v.native = nil
	if n.ops != nil && n.ops.OnRelease != nil {
		n.ops.OnRelease(n.entity)
	}
}

func releaseObject(inst *Instance, v *Variant) {
	data := v.obj
	v.obj = nil
	for _, e := range data.entries {
		inst.Unref(e.val)
	}
	data.entries = nil
	data.keys = nil
}

func releaseArray(inst *Instance, v *Variant) {
	data := v.arr
	v.arr = nil
	for _, m := range data.elems {
		inst.Unref(m)
	}
	data.elems = nil
}

func releaseSet(inst *Instance, v *Variant) {
	data := v.set
	v.set = nil
	for _, e := range data.arr {
		e.kvs = nil
		inst.Unref(e.elem)
		e.elem = nil
	}
	data.arr = nil
	data.tree = rbTree{}
	inst.statExtra(KindSet, data.extraSize, false)
	data.extraSize = 0
}
