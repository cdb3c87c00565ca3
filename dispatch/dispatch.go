// Package dispatch implements the priority-ordered, action-tagged handler
// lists that pin edges are routed through. Grounded on the teacher's
// core/trsync.go TriggerSync linked-list callback chain (the shape of
// "register a handler, fire it on an event, deregister it later"), but
// generalized from a single flat callback list per trigger-sync object to
// one priority-ordered list per action tag, as the spec requires.
package dispatch

// Action tags a digital input can be bound to.
type Action int

const (
	ActionNone Action = iota
	ActionStop
	ActionFastStop
	ActionHalt
	ActionCycleStart
	ActionAlarm
	ActionShutdown
	ActionPanic
	ActionReset
	ActionLimit
	ActionInterlock
	ActionInternal
)

// EdgeKind distinguishes a transition-to-active edge from a
// transition-to-inactive one.
type EdgeKind int

const (
	EdgeLeading EdgeKind = iota
	EdgeTrailing
)

// Handler is invoked with the edge kind and an opaque source identifier
// (normally the pin index). Returning true means "handled": propagation to
// lower-priority handlers in the same list stops.
type Handler func(kind EdgeKind, source int) bool

type node struct {
	priority int
	seq      int // insertion order, for same-priority tie-breaking
	handler  Handler
	next     *node
}

// List is one action tag's priority-ordered singly-linked handler chain.
type List struct {
	head    *node
	nextSeq int
}

// Token identifies one inserted handler for later deregistration, since Go
// func values aren't comparable.
type Token struct {
	list *List
	node *node
}

// Insert adds handler at the given priority. Insertion is O(N) and
// preserves "lower-priority-first-after-same-priority" ordering: among
// handlers sharing a priority, the one inserted earlier runs first.
func (l *List) Insert(priority int, h Handler) Token {
	n := &node{priority: priority, seq: l.nextSeq, handler: h}
	l.nextSeq++

	if l.head == nil || priority < l.head.priority {
		n.next = l.head
		l.head = n
		return Token{list: l, node: n}
	}
	cur := l.head
	for cur.next != nil && cur.next.priority <= priority {
		cur = cur.next
	}
	n.next = cur.next
	cur.next = n
	return Token{list: l, node: n}
}

// Deregister removes the handler identified by t. O(N).
func (t Token) Deregister() {
	if t.list == nil {
		return
	}
	var prev *node
	for cur := t.list.head; cur != nil; cur = cur.next {
		if cur == t.node {
			if prev == nil {
				t.list.head = cur.next
			} else {
				prev.next = cur.next
			}
			return
		}
		prev = cur
	}
}

// Dispatch invokes every handler in priority order until one reports
// handled, or the list is exhausted.
func (l *List) Dispatch(kind EdgeKind, source int) bool {
	for cur := l.head; cur != nil; cur = cur.next {
		if cur.handler(kind, source) {
			return true
		}
	}
	return false
}

// Registry owns one List per action tag plus the always-first internal
// list used by homing/probing, per the spec's "invokes first the internal
// handler list ... then the list corresponding to its action" rule.
type Registry struct {
	internal List
	byAction map[Action]*List
}

// NewRegistry builds an empty registry with every action tag present.
func NewRegistry() *Registry {
	r := &Registry{byAction: make(map[Action]*List)}
	for _, a := range []Action{
		ActionNone, ActionStop, ActionFastStop, ActionHalt, ActionCycleStart,
		ActionAlarm, ActionShutdown, ActionPanic, ActionReset, ActionLimit,
		ActionInterlock, ActionInternal,
	} {
		r.byAction[a] = &List{}
	}
	return r
}

// RegisterInternal adds a handler to the always-first internal chain
// (homing/probing hooks that must see an edge before the bound action
// fires).
func (r *Registry) RegisterInternal(priority int, h Handler) Token {
	return r.internal.Insert(priority, h)
}

// Register adds a handler to the list for the given action tag.
func (r *Registry) Register(action Action, priority int, h Handler) Token {
	return r.byAction[action].Insert(priority, h)
}

// Fire dispatches one edge to the internal list first, then the list bound
// to action, stopping at the first handler (in either list) that reports
// handled.
func (r *Registry) Fire(action Action, kind EdgeKind, source int) bool {
	if r.internal.Dispatch(kind, source) {
		return true
	}
	if action == ActionNone {
		return false
	}
	return r.byAction[action].Dispatch(kind, source)
}
