package purc

import "github.com/google/uuid"

// Observer is one live observation bound through a task: a target
// value, the event it listens for, and an optional handler invoked when
// a matching message is processed.
type Observer struct {
	id        uuid.UUID
	task      *Task
	target    *Variant // owned; nil while dormant
	atName    string   // observed document variable, "" for direct targets
	eventType string
	subType   string
	with      *Variant // owned, optional handler
	listener  *Listener
	native    bool
	alias     string
	revoked   bool
}

// ID returns the observer handle ID.
func (o *Observer) ID() uuid.UUID { return o.id }

// Target returns the currently observed value, nil for a dormant
// named-variable observer. The reference stays owned by the observer.
func (o *Observer) Target() *Variant { return o.target }

// EventName returns the full "type:subtype" form of the observed event.
func (o *Observer) EventName() string {
	if o.subType == "" {
		return o.eventType
	}
	return o.eventType + ":" + o.subType
}

// Observe collects the attributes of one observe construct and binds
// them into an Observer. Every attribute is set-once.
type Observe struct {
	task *Task

	on      *Variant
	at      string
	forType string
	forSub  string
	as      string
	with    *Variant

	onSet   bool
	atSet   bool
	forSet  bool
	asSet   bool
	withSet bool
}

// NewObserve starts building an observe construct on the task.
func (t *Task) NewObserve() *Observe {
	return &Observe{task: t}
}

// SetOn names the observed value directly.
func (o *Observe) SetOn(v *Variant) error {
	if o.onSet {
		return o.task.inst.setError(CodeDuplicated, "observe attribute 'on' set twice")
	}
	if v == nil {
		return o.task.inst.setError(CodeInvalidValue, "observe 'on' requires a valid value")
	}
	o.on = v
	o.onSet = true
	return nil
}

// SetFor names the observed event as "type" or "type:subtype".
func (o *Observe) SetFor(eventName string) error {
	if o.forSet {
		return o.task.inst.setError(CodeDuplicated, "observe attribute 'for' set twice")
	}
	if eventName == "" {
		return o.task.inst.setError(CodeInvalidValue, "observe 'for' requires an event name")
	}
	o.forType, o.forSub = splitEventName(eventName)
	o.forSet = true
	return nil
}

// SetAt names a document variable to observe instead of a direct value.
func (o *Observe) SetAt(name string) error {
	if o.atSet {
		return o.task.inst.setError(CodeDuplicated, "observe attribute 'at' set twice")
	}
	if name == "" {
		return o.task.inst.setError(CodeInvalidValue, "observe 'at' requires a variable name")
	}
	o.at = name
	o.atSet = true
	return nil
}

// SetAs names an alias under which the bound observer is published as a
// document variable; releasing the alias revokes the observer.
func (o *Observe) SetAs(name string) error {
	if o.asSet {
		return o.task.inst.setError(CodeDuplicated, "observe attribute 'as' set twice")
	}
	if name == "" {
		return o.task.inst.setError(CodeInvalidValue, "observe 'as' requires a name")
	}
	o.as = name
	o.asSet = true
	return nil
}

// SetWith attaches the handler invoked for matching messages; a dynamic
// value's getter is called with the target as root and the message args.
func (o *Observe) SetWith(v *Variant) error {
	if o.withSet {
		return o.task.inst.setError(CodeDuplicated, "observe attribute 'with' set twice")
	}
	if v == nil {
		return o.task.inst.setError(CodeInvalidValue, "observe 'with' requires a valid value")
	}
	o.with = v
	o.withSet = true
	return nil
}

// SetAttr dispatches one named attribute. String-valued attributes
// take their text from the value; unknown attributes are not
// implemented.
func (o *Observe) SetAttr(name string, val *Variant) error {
	switch name {
	case "on":
		return o.SetOn(val)
	case "with":
		return o.SetWith(val)
	case "for", "at", "as":
		text, err := val.StringText()
		if err != nil {
			return o.task.inst.setError(CodeWrongDataType,
				"observe attribute %q requires a string value", name)
		}
		switch name {
		case "for":
			return o.SetFor(text)
		case "at":
			return o.SetAt(text)
		default:
			return o.SetAs(text)
		}
	}
	return o.task.inst.setError(CodeNotImplemented, "observe attribute %q is not implemented", name)
}

// Bind classifies the observe target and registers the observer:
//
//  1. with 'at' the target is the named document variable, which takes
//     precedence over 'on'; the observer stays keyed by the name and
//     follows the variable when it is rebound;
//  2. a native target is asked through its OnObserve hook, which may
//     reject the observation (timer entities validate their event names
//     this way);
//  3. a container target gets a mutation listener for the grow, shrink
//     or change event, routing matches into the task inbox;
//  4. anything else cannot deliver the event and fails.
//
// Every failure happens before any listener or hook side effect is
// left behind.
func (o *Observe) Bind() (*Observer, error) {
	t := o.task
	inst := t.inst

	if !o.forSet {
		return nil, inst.setError(CodeInvalidValue, "observe requires a 'for' event")
	}

	target := o.on
	if o.atSet {
		named, ok := t.GetDocVariable(o.at)
		if !ok {
			return nil, inst.setError(CodeNotFound, "no document variable %q to observe", o.at)
		}
		target = named
	}
	if target == nil {
		return nil, inst.setError(CodeInvalidValue, "observe requires an 'on' value or an 'at' name")
	}

	obs := &Observer{
		id:        uuid.New(),
		task:      t,
		atName:    o.at,
		eventType: o.forType,
		subType:   o.forSub,
		alias:     o.as,
	}

	if err := t.attachTarget(obs, target); err != nil {
		return nil, err
	}

	if o.with != nil {
		inst.Ref(o.with)
		obs.with = o.with
	}
	t.observers = append(t.observers, obs)
	frame := t.currentFrame()
	frame.observers = append(frame.observers, obs)
	if obs.atName != "" {
		t.named[obs.atName] = append(t.named[obs.atName], obs)
	}

	inst.logger.DebugCat(CatObserver, "task %s observing %q on %s value #%d",
		t.id, obs.EventName(), target.kind, target.serial)

	if o.as != "" {
		if err := t.publishObserverAlias(obs); err != nil {
			t.RevokeObserver(obs)
			return nil, err
		}
	}
	return obs, nil
}

// attachTarget wires an observer to one concrete target value and takes
// a reference on it. Nothing is left behind on failure.
func (t *Task) attachTarget(obs *Observer, target *Variant) error {
	inst := t.inst

	switch {
	case target.kind == KindNative && target.NativeGetOps() != nil && target.NativeGetOps().OnObserve != nil:
		ops := target.NativeGetOps()
		if !ops.OnObserve(target.NativeEntity(), obs.eventType, obs.subType) {
			return inst.setError(CodeInvalidValue,
				"entity rejected observation of %q", obs.EventName())
		}
		obs.native = true

	case target.IsContainer():
		op, ok := OpFromString(obs.eventType)
		if !ok {
			return inst.setError(CodeInvalidValue,
				"unknown msg %q for a container target", obs.EventName())
		}
		l, err := inst.RegisterPostListener(target, op, obs, nil,
			func(source *Variant, op Op, ctxt any, args []*Variant) bool {
				ob := ctxt.(*Observer)
				msg := &Message{
					Source:  source,
					Type:    op.String(),
					SubType: ob.subType,
					Args:    args,
				}
				return ob.task.Dispatch(msg) == nil
			})
		if err != nil {
			return err
		}
		obs.listener = l

	default:
		return inst.setError(CodeInvalidValue,
			"unknown msg %q for a %s target", obs.EventName(), target.Kind())
	}

	inst.Ref(target)
	obs.target = target
	return nil
}

// detachTarget undoes attachTarget: the mutation listener is revoked or
// the native OnForget hook runs, and the target reference is dropped.
// A dormant observer has nothing to detach.
func (t *Task) detachTarget(obs *Observer) {
	if obs.target == nil {
		return
	}

	switch {
	case obs.listener != nil:
		if err := t.inst.RevokeListener(obs.target, obs.listener); err != nil {
			t.inst.logger.WarnCat(CatObserver, "detaching observer %s: %v", obs.id, err)
		}
		obs.listener = nil
	case obs.native:
		ops := obs.target.NativeGetOps()
		if ops != nil && ops.OnForget != nil {
			ops.OnForget(obs.target.NativeEntity(), obs.eventType, obs.subType)
		}
		obs.native = false
	}

	t.inst.Unref(obs.target)
	obs.target = nil
}

// publishObserverAlias binds the observer as a native document variable
// whose release revokes the observation.
func (t *Task) publishObserverAlias(obs *Observer) error {
	handle, err := t.inst.MakeNative(obs, &NativeOps{
		OnRelease: func(entity any) {
			ob := entity.(*Observer)
			if !ob.revoked {
				ob.task.RevokeObserver(ob)
			}
		},
	})
	if err != nil {
		return err
	}
	err = t.BindDocVariable(obs.alias, handle)
	t.inst.Unref(handle)
	return err
}

// RevokeObserver tears one observation down: the container listener is
// revoked or the native OnForget hook runs, and the observer's
// references are dropped. Revoking twice is a programming defect.
func (t *Task) RevokeObserver(obs *Observer) {
	if obs.revoked {
		panic("purc: observer revoked twice")
	}
	obs.revoked = true

	t.detachTarget(obs)

	for i, have := range t.observers {
		if have == obs {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			break
		}
	}
	if obs.atName != "" {
		list := t.named[obs.atName]
		for i, have := range list {
			if have == obs {
				t.named[obs.atName] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(t.named[obs.atName]) == 0 {
			delete(t.named, obs.atName)
		}
	}

	if obs.with != nil {
		t.inst.Unref(obs.with)
		obs.with = nil
	}

	t.inst.logger.DebugCat(CatObserver, "task %s revoked observer %s", t.id, obs.id)
}

// invoke runs the observer's handler for one matched message.
func (obs *Observer) invoke(msg *Message) {
	if obs.with == nil {
		return
	}
	if getter := obs.with.DynamicGetter(); getter != nil {
		if out, err := getter(obs.target, msg.Args); err != nil {
			obs.task.inst.logger.WarnCat(CatObserver,
				"observer %s handler failed: %v", obs.id, err)
		} else if out != nil {
			obs.task.inst.Unref(out)
		}
	}
}

// ProcessPending drains the task inbox, delivering each message to the
// handlers of every matching observer, and returns the number of
// messages processed.
func (t *Task) ProcessPending() int {
	n := 0
	for {
		msg, ok := t.NextMessage()
		if !ok {
			return n
		}
		for _, obs := range t.MatchObservers(msg.Source, msg.Type, msg.SubType) {
			obs.invoke(msg)
		}
		t.ReleaseMessage(msg)
		n++
	}
}
