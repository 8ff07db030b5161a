package purc

import "time"

// Timer event names accepted by the timers entity.
const (
	TimerEventExpired     = "expired"
	TimerEventActivated   = "activated"
	TimerEventDeactivated = "deactivated"
)

// TimersVariableName is the document variable the timers entity is
// published under.
const TimersVariableName = "TIMERS"

// Timers is the per-task timer entity, published as a native document
// variable. Observing it validates the event name through the entity's
// OnObserve hook; expirations and state changes land in the task inbox
// with the timer id as the event subtype.
type Timers struct {
	task  *Task
	self  *Variant // the native variant wrapping this entity
	items map[string]*timerItem
}

type timerItem struct {
	id       string
	interval time.Duration
	active   bool
	deadline time.Time
}

// Timers returns the task's timer entity variant, creating and
// publishing it on first use. The reference stays owned by the task.
func (t *Task) Timers() (*Variant, error) {
	if t.timers != nil {
		return t.timers, nil
	}

	entity := &Timers{
		task:  t,
		items: make(map[string]*timerItem),
	}
	v, err := t.inst.MakeNative(entity, &NativeOps{
		OnObserve: func(e any, eventName, subType string) bool {
			switch eventName {
			case TimerEventExpired, TimerEventActivated, TimerEventDeactivated:
				return true
			}
			return false
		},
		OnRelease: func(e any) {
			e.(*Timers).items = nil
		},
	})
	if err != nil {
		return nil, err
	}
	entity.self = v

	if err := t.BindDocVariable(TimersVariableName, v); err != nil {
		t.inst.Unref(v)
		return nil, err
	}
	t.timers = v
	return v, nil
}

// TimersEntity returns the entity behind the task's timer variant,
// creating it on first use.
func (t *Task) TimersEntity() (*Timers, error) {
	v, err := t.Timers()
	if err != nil {
		return nil, err
	}
	return v.NativeEntity().(*Timers), nil
}

func (tm *Timers) post(eventType, id string) {
	msg := &Message{Source: tm.self, Type: eventType, SubType: id}
	if err := tm.task.Dispatch(msg); err != nil {
		tm.task.inst.logger.WarnCat(CatTimer, "timer %q event %q dropped: %v", id, eventType, err)
	}
}

// SetTimer creates or reconfigures a timer. An active timer's first
// expiration is one interval from now.
func (tm *Timers) SetTimer(id string, interval time.Duration, active bool) error {
	if id == "" {
		return tm.task.inst.setError(CodeInvalidValue, "timer requires an id")
	}
	if interval <= 0 {
		return tm.task.inst.setError(CodeInvalidValue, "timer %q requires a positive interval", id)
	}
	tm.items[id] = &timerItem{
		id:       id,
		interval: interval,
		active:   active,
		deadline: time.Now().Add(interval),
	}
	tm.task.inst.logger.DebugCat(CatTimer, "timer %q set: interval %s, active %v", id, interval, active)
	return nil
}

// CancelTimer removes a timer.
func (tm *Timers) CancelTimer(id string) error {
	if _, ok := tm.items[id]; !ok {
		return tm.task.inst.setError(CodeNotFound, "no timer %q", id)
	}
	delete(tm.items, id)
	tm.task.inst.logger.DebugCat(CatTimer, "timer %q cancelled", id)
	return nil
}

// ActivateTimer starts a stopped timer, resetting its deadline and
// posting an activated event. Activating an active timer is a no-op.
func (tm *Timers) ActivateTimer(id string) error {
	item, ok := tm.items[id]
	if !ok {
		return tm.task.inst.setError(CodeNotFound, "no timer %q", id)
	}
	if item.active {
		return nil
	}
	item.active = true
	item.deadline = time.Now().Add(item.interval)
	tm.post(TimerEventActivated, id)
	return nil
}

// DeactivateTimer stops an active timer, posting a deactivated event.
// Deactivating a stopped timer is a no-op.
func (tm *Timers) DeactivateTimer(id string) error {
	item, ok := tm.items[id]
	if !ok {
		return tm.task.inst.setError(CodeNotFound, "no timer %q", id)
	}
	if !item.active {
		return nil
	}
	item.active = false
	tm.post(TimerEventDeactivated, id)
	return nil
}

// Tick advances the timer clock to now, posting one expired event per
// active timer whose deadline has passed and rescheduling it one
// interval ahead. Returns the number of expirations posted. Callers
// drive Tick at the instance's configured tick interval.
func (tm *Timers) Tick(now time.Time) int {
	n := 0
	for _, item := range tm.items {
		if !item.active || now.Before(item.deadline) {
			continue
		}
		tm.post(TimerEventExpired, item.id)
		n++
		// Skip missed intervals instead of bursting.
		for !now.Before(item.deadline) {
			item.deadline = item.deadline.Add(item.interval)
		}
	}
	return n
}
