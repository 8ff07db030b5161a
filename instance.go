package purc

import (
	"io"
	"os"
	"sync"
	"time"
)

// Config holds configuration for a runtime instance
type Config struct {
	AppName       string
	RunnerName    string
	Debug         bool
	PoolCapacity  int           // reuse ring capacity, values
	InboxCapacity int           // per-task message inbox capacity
	LogOutput     io.Writer     // defaults to stderr
	TickInterval  time.Duration // granularity hint for timer entities
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		AppName:       "purc",
		RunnerName:    "main",
		Debug:         false,
		PoolCapacity:  32,
		InboxCapacity: 64,
		TickInterval:  10 * time.Millisecond,
	}
}

// VariantStat is a snapshot of per-instance value usage statistics.
// Counts are per kind; sizes account only for payload bytes held outside
// the value itself (string text, byte sequences, container bookkeeping).
type VariantStat struct {
	NrValues      [kindMax]uint64
	SzMem         [kindMax]uint64
	NrTotalValues uint64
	SzTotalMem    uint64
	NrReserved    uint64
}

// Instance is one runtime instance: the value reuse pool, usage
// statistics, atom table, and last-error slot all hang off it. Nothing
// in this package keeps hidden process-global state; callers thread the
// instance through explicitly. An instance is not safe for concurrent
// use from multiple goroutines without external synchronization, which
// matches the cooperative one-task-at-a-time execution model.
type Instance struct {
	cfg    *Config
	logger *Logger

	mu      sync.Mutex
	pool    []*Variant // reuse ring
	head    int
	tail    int
	stat    VariantStat
	serial  uint64
	lastErr *RuntimeError
	closed  bool

	atoms     map[string]Atom
	atomNames []string

	tasks map[*Task]struct{}

	// reserved constants, FlagNoFree
	undef  *Variant
	null   *Variant
	vTrue  *Variant
	vFalse *Variant
}

// New creates a runtime instance
func New(cfg *Config) *Instance {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.PoolCapacity <= 0 {
		cfg.PoolCapacity = 32
	}
	if cfg.InboxCapacity <= 0 {
		cfg.InboxCapacity = 64
	}
	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}

	inst := &Instance{
		cfg: cfg,
		// ring keeps one slot open to distinguish full from empty
		pool:      make([]*Variant, cfg.PoolCapacity+1),
		atoms:     make(map[string]Atom),
		atomNames: []string{""}, // atom 0 is reserved
		tasks:     make(map[*Task]struct{}),
	}
	inst.logger = NewLogger(out, cfg.Debug)

	inst.undef = inst.makeReserved(KindUndefined)
	inst.null = inst.makeReserved(KindNull)
	inst.vTrue = inst.makeReserved(KindBoolean)
	inst.vTrue.b = true
	inst.vFalse = inst.makeReserved(KindBoolean)

	inst.logger.DebugCat(CatSystem, "instance created (app: %s, runner: %s)",
		cfg.AppName, cfg.RunnerName)

	return inst
}

func (inst *Instance) makeReserved(kind Kind) *Variant {
	inst.serial++
	return &Variant{
		kind:   kind,
		flags:  FlagNoFree,
		refc:   1,
		serial: inst.serial,
	}
}

// Logger returns the instance logger.
func (inst *Instance) Logger() *Logger {
	return inst.logger
}

// Close tears the instance down. Values still alive after Close keep
// working, but the reuse pool is drained and further statistics are
// meaningless. Closing twice is a programming defect.
func (inst *Instance) Close() {
	inst.mu.Lock()
	if inst.closed {
		inst.mu.Unlock()
		panic("purc: instance closed twice")
	}
	inst.closed = true
	inst.head = 0
	inst.tail = 0
	inst.stat.NrReserved = 0
	for i := range inst.pool {
		inst.pool[i] = nil
	}
	stat := inst.stat
	inst.mu.Unlock()

	inst.logger.DebugCat(CatSystem,
		"instance closed (%d values alive, %d reserved)",
		stat.NrTotalValues, stat.NrReserved)
}

// UsageStat returns a snapshot of the usage statistics.
func (inst *Instance) UsageStat() VariantStat {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.stat
}

// Atom interns a string in the instance atom table and returns its
// handle. Interning the same text twice yields the same atom.
func (inst *Instance) Atom(s string) Atom {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if a, ok := inst.atoms[s]; ok {
		return a
	}
	a := Atom(len(inst.atomNames))
	inst.atomNames = append(inst.atomNames, s)
	inst.atoms[s] = a
	return a
}

// TryAtom returns the atom for text already interned, or 0.
func (inst *Instance) TryAtom(s string) Atom {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.atoms[s]
}

// AtomString resolves an atom back to its text; unknown atoms resolve to
// the empty string.
func (inst *Instance) AtomString(a Atom) string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if int(a) >= len(inst.atomNames) {
		return ""
	}
	return inst.atomNames[a]
}

// acquire returns a zeroed value from the reuse ring if one is
// available, else allocates, and updates the usage statistics either
// way. The returned value carries one reference owned by the caller.
func (inst *Instance) acquire(kind Kind) *Variant {
	inst.mu.Lock()

	var v *Variant
	if inst.head != inst.tail {
		v = inst.pool[inst.tail]
		inst.pool[inst.tail] = nil
		inst.tail = (inst.tail + 1) % len(inst.pool)
		inst.stat.NrReserved--
		v.reset()
	} else {
		inst.serial++
		v = &Variant{serial: inst.serial}
	}

	v.kind = kind
	v.refc = 1
	inst.stat.NrValues[kind]++
	inst.stat.NrTotalValues++
	inst.mu.Unlock()

	inst.logger.TraceCat(CatMemory, "acquired %s value #%d", kind, v.serial)
	return v
}

// put returns a value's backing memory to the reuse ring if space
// remains; the statistics are updated either way. The value must
// already have been released by its kind's release routine.
func (inst *Instance) put(v *Variant) {
	inst.mu.Lock()
	kind := v.kind
	inst.stat.NrValues[kind]--
	inst.stat.NrTotalValues--

	if (inst.head+1)%len(inst.pool) != inst.tail {
		inst.pool[inst.head] = v
		inst.head = (inst.head + 1) % len(inst.pool)
		inst.stat.NrReserved++
	}
	inst.mu.Unlock()

	inst.logger.TraceCat(CatMemory, "released %s value #%d", kind, v.serial)
}

// statExtra adjusts the extra payload byte accounting for one kind.
func (inst *Instance) statExtra(kind Kind, n int, add bool) {
	inst.mu.Lock()
	if add {
		inst.stat.SzMem[kind] += uint64(n)
		inst.stat.SzTotalMem += uint64(n)
	} else {
		inst.stat.SzMem[kind] -= uint64(n)
		inst.stat.SzTotalMem -= uint64(n)
	}
	inst.mu.Unlock()
}

func (inst *Instance) registerTask(t *Task) {
	inst.mu.Lock()
	inst.tasks[t] = struct{}{}
	inst.mu.Unlock()
	inst.logger.DebugCat(CatTask, "registered task %s", t.id)
}

func (inst *Instance) unregisterTask(t *Task) {
	inst.mu.Lock()
	delete(inst.tasks, t)
	inst.mu.Unlock()
	inst.logger.DebugCat(CatTask, "unregistered task %s", t.id)
}

// TaskCount returns the number of live tasks on this instance.
func (inst *Instance) TaskCount() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return len(inst.tasks)
}
