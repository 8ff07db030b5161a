package purc

import "github.com/google/uuid"

// Message is one event routed to a task inbox. Type and SubType carry
// the two halves of an event name such as "change:displaced"; SubType
// is empty when the name has no colon.
type Message struct {
	Source  *Variant
	Type    string
	SubType string
	Args    []*Variant
}

// EventName returns the full "type:subtype" form of the message.
func (m *Message) EventName() string {
	if m.SubType == "" {
		return m.Type
	}
	return m.Type + ":" + m.SubType
}

// splitEventName splits a "type:subtype" event name. Everything after
// the first colon is the subtype.
func splitEventName(name string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}

// Frame is one scope on a task's execution stack. Observers registered
// while a frame is on top die with it.
type Frame struct {
	task      *Task
	observers []*Observer
}

// Task is one cooperative execution context: an event inbox, a frame
// stack, named document variables, and the observers bound through it.
// A task belongs to exactly one instance and is driven from one
// goroutine at a time.
type Task struct {
	inst      *Instance
	id        uuid.UUID
	inbox     []*Message
	frames    []*Frame
	observers []*Observer
	named     map[string][]*Observer // document-variable name -> observers
	docVars   map[string]*Variant
	timers    *Variant
	closed    bool
}

// NewTask creates a task on the instance with one base frame already
// pushed.
func (inst *Instance) NewTask() *Task {
	t := &Task{
		inst:    inst,
		id:      uuid.New(),
		named:   make(map[string][]*Observer),
		docVars: make(map[string]*Variant),
	}
	t.frames = append(t.frames, &Frame{task: t})
	inst.registerTask(t)
	return t
}

// ID returns the task handle ID.
func (t *Task) ID() uuid.UUID { return t.id }

// Dispatch appends a message to the task inbox, claiming a reference on
// every arg so they outlive the mutation that produced them. Source is
// borrowed: whatever posted the message (normally the binding observer)
// must keep it alive while the message is pending. Consumers release
// the args with ReleaseMessage. A full inbox rejects the message
// without claiming anything.
func (t *Task) Dispatch(msg *Message) error {
	if t.closed {
		return t.inst.setError(CodeInvalidValue, "dispatch to a closed task")
	}
	if len(t.inbox) >= t.inst.cfg.InboxCapacity {
		t.inst.logger.WarnCat(CatTask, "task %s inbox full, dropping %q", t.id, msg.EventName())
		return t.inst.setError(CodeOutOfMemory, "task inbox full")
	}
	for _, a := range msg.Args {
		t.inst.Ref(a)
	}
	t.inbox = append(t.inbox, msg)
	t.inst.logger.TraceCat(CatTask, "task %s queued %q (%d pending)",
		t.id, msg.EventName(), len(t.inbox))
	return nil
}

// ReleaseMessage drops the references Dispatch claimed for a message.
// Call it exactly once per message taken from NextMessage.
func (t *Task) ReleaseMessage(msg *Message) {
	for _, a := range msg.Args {
		t.inst.Unref(a)
	}
	msg.Args = nil
}

// NextMessage pops the oldest pending message, reporting false when the
// inbox is empty.
func (t *Task) NextMessage() (*Message, bool) {
	if len(t.inbox) == 0 {
		return nil, false
	}
	msg := t.inbox[0]
	t.inbox[0] = nil
	t.inbox = t.inbox[1:]
	return msg, true
}

// PendingMessages returns the inbox depth.
func (t *Task) PendingMessages() int {
	return len(t.inbox)
}

// PushFrame enters a new scope on the frame stack.
func (t *Task) PushFrame() *Frame {
	f := &Frame{task: t}
	t.frames = append(t.frames, f)
	return f
}

// PopFrame leaves the top scope, revoking every observer registered in
// it in reverse order. Popping the base frame is a programming defect.
func (t *Task) PopFrame() {
	if len(t.frames) <= 1 {
		panic("purc: pop of task base frame")
	}
	f := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	for i := len(f.observers) - 1; i >= 0; i-- {
		obs := f.observers[i]
		if !obs.revoked {
			t.RevokeObserver(obs)
		}
	}
	f.observers = nil
}

// currentFrame returns the top of the frame stack.
func (t *Task) currentFrame() *Frame {
	return t.frames[len(t.frames)-1]
}

// BindDocVariable binds a named variable visible to observe targets,
// claiming one reference. Rebinding a name replaces the old value and
// moves the observers keyed on the name over to the new one.
func (t *Task) BindDocVariable(name string, v *Variant) error {
	if name == "" {
		return t.inst.setError(CodeInvalidValue, "document variable requires a name")
	}
	if v == nil {
		return t.inst.setError(CodeInvalidValue, "document variable requires a value")
	}
	t.inst.Ref(v)
	old, had := t.docVars[name]
	t.docVars[name] = v
	t.retargetNamed(name, v)
	if had {
		t.inst.Unref(old)
	}
	return nil
}

// UnbindDocVariable drops a named variable and its reference. Observers
// keyed on the name go dormant until the name is bound again.
func (t *Task) UnbindDocVariable(name string) error {
	old, ok := t.docVars[name]
	if !ok {
		return t.inst.setError(CodeNotFound, "no document variable %q", name)
	}
	delete(t.docVars, name)
	t.retargetNamed(name, nil)
	t.inst.Unref(old)
	return nil
}

// retargetNamed re-resolves the observers keyed on a document variable
// name after the binding changed. An observer the new value cannot
// carry (or an unbound name) goes dormant until the next rebind.
func (t *Task) retargetNamed(name string, v *Variant) {
	for _, obs := range t.named[name] {
		if obs.revoked || obs.target == v {
			continue
		}
		t.detachTarget(obs)
		if v == nil {
			continue
		}
		if err := t.attachTarget(obs, v); err != nil {
			t.inst.logger.WarnCat(CatObserver,
				"observer %s dormant after rebinding %q: %v", obs.id, name, err)
		}
	}
}

// GetDocVariable resolves a named variable. The reference stays owned
// by the task.
func (t *Task) GetDocVariable(name string) (*Variant, bool) {
	v, ok := t.docVars[name]
	return v, ok
}

// MatchObservers returns the live observers interested in an event from
// source: the target must be the same value, the type must match, and
// an observer with an empty subtype matches any subtype.
func (t *Task) MatchObservers(source *Variant, eventType, subType string) []*Observer {
	var out []*Observer
	for _, obs := range t.observers {
		if obs.revoked || obs.target != source {
			continue
		}
		if obs.eventType != eventType {
			continue
		}
		if obs.subType != "" && obs.subType != subType {
			continue
		}
		out = append(out, obs)
	}
	return out
}

// Close tears the task down: every live observer is revoked, document
// variables are unbound, pending messages are dropped, and the task is
// unregistered from its instance. Closing twice is a programming
// defect.
func (t *Task) Close() {
	if t.closed {
		panic("purc: task closed twice")
	}

	for i := len(t.observers) - 1; i >= 0; i-- {
		if !t.observers[i].revoked {
			t.RevokeObserver(t.observers[i])
		}
	}
	t.observers = nil
	t.named = nil

	for name, v := range t.docVars {
		delete(t.docVars, name)
		t.inst.Unref(v)
	}
	if t.timers != nil {
		t.inst.Unref(t.timers)
		t.timers = nil
	}
	for _, msg := range t.inbox {
		t.ReleaseMessage(msg)
	}
	t.inbox = nil
	t.frames = nil
	t.closed = true
	t.inst.unregisterTask(t)
}
