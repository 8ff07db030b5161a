package purc

import "github.com/google/uuid"

// Op identifies a container mutation.
type Op uint8

const (
	// OpGrow fires when a container gains a member. Args: the new value.
	OpGrow Op = iota
	// OpShrink fires when a container loses a member. Args: the removed
	// value.
	OpShrink
	// OpChange fires when a member is replaced in place. Args: the old
	// value followed by the new one.
	OpChange
)

// String returns the event name of the operation.
func (op Op) String() string {
	switch op {
	case OpGrow:
		return "grow"
	case OpShrink:
		return "shrink"
	case OpChange:
		return "change"
	}
	return "unknown"
}

// OpFromString converts an event name to an Op; the second result is
// false for unknown names.
func OpFromString(s string) (Op, bool) {
	switch s {
	case "grow":
		return OpGrow, true
	case "shrink":
		return OpShrink, true
	case "change":
		return OpChange, true
	}
	return 0, false
}

// ListenerFunc is called synchronously when a container mutates. source
// is the container, ctxt the value registered with the listener, and
// args the operation payload. The return value is diagnostic only; a
// false does not undo the mutation.
type ListenerFunc func(source *Variant, op Op, ctxt any, args []*Variant) bool

// Listener is one registered mutation callback. A listener belongs to
// exactly one container and stays alive until revoked or the container
// is destroyed.
type Listener struct {
	id      uuid.UUID
	op      Op
	fn      ListenerFunc
	ctxt    any
	release func(ctxt any)
	pre     bool
	revoked bool
}

// ID returns the listener handle ID.
func (l *Listener) ID() uuid.UUID { return l.id }

func (inst *Instance) registerListener(v *Variant, op Op, pre bool, ctxt any, release func(any), fn ListenerFunc) (*Listener, error) {
	if !v.IsContainer() {
		return nil, inst.setError(CodeWrongDataType, "listeners attach to containers, got %s", v.Kind())
	}
	if fn == nil {
		return nil, inst.setError(CodeInvalidValue, "listener requires a callback")
	}
	l := &Listener{
		id:      uuid.New(),
		op:      op,
		fn:      fn,
		ctxt:    ctxt,
		release: release,
		pre:     pre,
	}
	v.listeners = append(v.listeners, l)
	inst.logger.DebugCat(CatListener, "registered %s listener %s on %s value #%d",
		op, l.id, v.kind, v.serial)
	return l, nil
}

// RegisterPostListener attaches a callback fired after a mutation of the
// given operation commits. ctxt is handed back to the callback verbatim;
// release, if not nil, runs once when the listener dies.
func (inst *Instance) RegisterPostListener(v *Variant, op Op, ctxt any, release func(any), fn ListenerFunc) (*Listener, error) {
	return inst.registerListener(v, op, false, ctxt, release, fn)
}

// RegisterPreListener attaches a callback meant to run before a
// mutation commits. The container operations only consume post
// listeners, so a pre listener is never fired by this package; the
// registration surface exists for embedders that drive mutations
// themselves.
func (inst *Instance) RegisterPreListener(v *Variant, op Op, ctxt any, release func(any), fn ListenerFunc) (*Listener, error) {
	return inst.registerListener(v, op, true, ctxt, release, fn)
}

// RevokeListener detaches a listener from its container and runs its
// release hook. Revoking a listener twice is a programming defect.
func (inst *Instance) RevokeListener(v *Variant, l *Listener) error {
	if !v.IsContainer() {
		return inst.setError(CodeWrongDataType, "listeners attach to containers, got %s", v.Kind())
	}
	if l.revoked {
		panic("purc: listener revoked twice")
	}
	for i, have := range v.listeners {
		if have != l {
			continue
		}
		v.listeners = append(v.listeners[:i], v.listeners[i+1:]...)
		l.revoked = true
		if l.release != nil {
			l.release(l.ctxt)
		}
		inst.logger.DebugCat(CatListener, "revoked %s listener %s on %s value #%d",
			l.op, l.id, v.kind, v.serial)
		return nil
	}
	return inst.setError(CodeNotFound, "listener %s is not attached to this value", l.id)
}

// firePost invokes the post listeners registered for op on v, in
// registration order, after the mutation has committed. Listeners may
// revoke themselves; the snapshot keeps iteration stable.
func firePost(v *Variant, op Op, args ...*Variant) {
	if len(v.listeners) == 0 {
		return
	}
	snapshot := make([]*Listener, len(v.listeners))
	copy(snapshot, v.listeners)
	for _, l := range snapshot {
		if l.op != op || l.revoked || l.pre {
			continue
		}
		l.fn(v, op, l.ctxt, args)
	}
}

// destroyListeners drops every listener of a value being destroyed,
// running release hooks. Callbacks do not fire for the destruction
// itself.
func destroyListeners(v *Variant) {
	if len(v.listeners) == 0 {
		return
	}
	ls := v.listeners
	v.listeners = nil
	for _, l := range ls {
		if l.revoked {
			continue
		}
		l.revoked = true
		if l.release != nil {
			l.release(l.ctxt)
		}
	}
}
