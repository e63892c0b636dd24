package pocket

import (
	"context"
	"time"
)

// Trigger is the kind of an external event that may start a reconciliation.
type Trigger int

const (
	// Connectivity reports the online state in Event.Online.
	Connectivity Trigger = iota
	// Identity reports the signed in owner in Event.Owner, empty when signed out.
	Identity
	// Focus reports that the application regained the user's focus.
	Focus
	// Tick is a periodic timer.
	Tick
	// Manual is an explicit user request.
	Manual
)

func (t Trigger) String() string {
	switch t {
	case Connectivity:
		return "connectivity"
	case Identity:
		return "identity"
	case Focus:
		return "focus"
	case Tick:
		return "tick"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// Event is a trigger delivered to a Scheduler.
type Event struct {
	Trigger Trigger
	Online  bool
	Owner   string
}

// Scheduler drives an Engine from a stream of events.
//
// It tracks the online state and the owner from the events themselves, and
// reconciles when going online, when an owner signs in, and on focus, tick and
// manual triggers. Events are handled one after the other on the goroutine
// calling Run.
type Scheduler struct {
	engine *Engine
	online bool
	owner  string

	// Interval, when positive, adds a Tick every Interval.
	Interval time.Duration
	// OnResult, when set, is called with the outcome of every reconciliation.
	OnResult func(ev Event, err error)
}

// NewScheduler returns a Scheduler starting with the given owner and online state.
func NewScheduler(engine *Engine, owner string, online bool) *Scheduler {
	return &Scheduler{engine: engine, owner: owner, online: online}
}

// Run handles events until ctx is done or events is closed.
func (s *Scheduler) Run(ctx context.Context, events <-chan Event) error {
	var tick <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)
		case <-tick:
			s.handle(ctx, Event{Trigger: Tick})
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, ev Event) {
	run := true
	switch ev.Trigger {
	case Connectivity:
		run = ev.Online && !s.online
		s.online = ev.Online
	case Identity:
		run = ev.Owner != "" && ev.Owner != s.owner
		s.owner = ev.Owner
	}
	if !run || !s.online || s.owner == "" {
		return
	}

	err := s.engine.Reconcile(ctx, s.owner, s.online)
	if err != nil {
		s.engine.logger.Printf("%s reconciliation of %q failed: %v", ev.Trigger, s.owner, err)
	}
	if s.OnResult != nil {
		s.OnResult(ev, err)
	}
}

// Probe turns the reachability of a remote store into Connectivity events.
type Probe struct {
	Pinger   Pinger
	Interval time.Duration
	// Timeout bounds every ping, it defaults to Interval.
	Timeout time.Duration
}

// Online pings once and reports whether the remote store answered.
func (p *Probe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = p.Interval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.Pinger.Ping(ctx) == nil
}

// Run pings every Interval and sends an event on each change of reachability,
// the first ping always sends one. It returns when ctx is done.
func (p *Probe) Run(ctx context.Context, events chan<- Event) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	first, last := true, false
	for {
		online := p.Online(ctx)
		if first || online != last {
			select {
			case events <- Event{Trigger: Connectivity, Online: online}:
			case <-ctx.Done():
				return ctx.Err()
			}
			first, last = false, online
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
