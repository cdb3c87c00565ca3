// Package status implements the configurable status-report generator:
// an ordered set of tokens sampled on a timer tick or on demand, with
// silent/filtered/verbose verbosity, grounded on the teacher's
// core/pwm.go timer-driven tick pattern (see toolhead.ESCSpindle.tick)
// generalized from a ramp step to a report tick.
package status

import "motioncore/core"

// Verbosity selects how much of a sample Report emits.
type Verbosity int

const (
	Silent   Verbosity = iota // never emits
	Filtered                  // only tokens whose value changed since the last report
	Verbose                   // every configured token, every tick
)

// Field binds one report token to a live value getter.
type Field struct {
	Token string
	Get   func() float64
}

// Sample is one ordered emission: Tokens and Values are index-aligned, with
// Tokens holding only the names Verbosity decided to include.
type Sample struct {
	Tokens []string
	Values []float64
}

// Reporter periodically or on-demand samples a configured field list.
type Reporter struct {
	Fields    []Field
	Verbosity Verbosity

	IntervalMs uint32
	Sinks      []Sink

	last    map[string]float64
	haveLast bool
	forced  bool

	timer   core.Timer
	ticking bool
}

// Sink receives every emitted Sample; Serial and MQTT publishers both
// implement it.
type Sink interface {
	Publish(Sample)
}

// NewReporter builds a Reporter over the given ordered field list.
func NewReporter(fields []Field, verbosity Verbosity, intervalMs uint32) *Reporter {
	return &Reporter{Fields: fields, Verbosity: verbosity, IntervalMs: intervalMs, last: make(map[string]float64)}
}

// ForceNext makes the very next tick (or RequestImmediate call) emit a full
// verbose sample regardless of configured verbosity, for M2/M30's "final
// status report" and for an operator's on-demand request.
func (r *Reporter) ForceNext() { r.forced = true }

// Sample reads every field and applies verbosity/filtering, returning nil
// if nothing should be emitted this tick.
func (r *Reporter) Sample() *Sample {
	verbosity := r.Verbosity
	if r.forced {
		verbosity = Verbose
	}
	if verbosity == Silent {
		return nil
	}

	cur := make(map[string]float64, len(r.Fields))
	for _, f := range r.Fields {
		cur[f.Token] = f.Get()
	}

	var s Sample
	for _, f := range r.Fields {
		v := cur[f.Token]
		if verbosity == Verbose || !r.haveLast || r.last[f.Token] != v {
			s.Tokens = append(s.Tokens, f.Token)
			s.Values = append(s.Values, v)
		}
	}

	r.last = cur
	r.haveLast = true
	r.forced = false

	if verbosity == Filtered && len(s.Tokens) == 0 {
		return nil
	}
	return &s
}

// emit samples and fans the result out to every sink.
func (r *Reporter) emit() {
	s := r.Sample()
	if s == nil {
		return
	}
	for _, sink := range r.Sinks {
		sink.Publish(*s)
	}
}

// RequestImmediate emits a report right now, outside the periodic tick,
// honoring the configured verbosity (use ForceNext first for a full one).
func (r *Reporter) RequestImmediate() { r.emit() }

// Start schedules the periodic tick. Calling it twice is a no-op.
func (r *Reporter) Start() {
	if r.ticking || r.IntervalMs == 0 {
		return
	}
	r.ticking = true
	r.timer.Handler = r.tick
	r.timer.WakeTime = core.GetTime() + core.TimerFromUS(r.IntervalMs*1000)
	core.ScheduleTimer(&r.timer)
}

// Stop cancels the periodic tick; it may be restarted with Start.
func (r *Reporter) Stop() {
	r.ticking = false
	r.timer.Next = nil
}

func (r *Reporter) tick(t *core.Timer) uint8 {
	if !r.ticking {
		return core.SF_DONE
	}
	r.emit()
	t.WakeTime += core.TimerFromUS(r.IntervalMs * 1000)
	return core.SF_RESCHEDULE
}
