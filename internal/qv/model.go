// Package qv implements the State/Action model: the in-memory Q and V
// tables indexed by (method, CSE sequence) and (method, sequence, action),
// guarded by a single mutex per the single-writer serialization the training
// loop and the MCMC explorer both require.
package qv

import (
	"fmt"
	"strconv"
	"strings"
)

// Method identifies a compiled method within a corpus. Equality and hashing
// are structural over both fields, which Go's comparable struct gives for free.
type Method struct {
	Corpus string
	Index  int
}

func (m Method) String() string {
	return fmt.Sprintf("%s#%d", m.Corpus, m.Index)
}

// Action is a string-valued token: "0" denotes stop, any positive integer
// denotes performing that still-available CSE candidate.
type Action string

// StopAction is the sentinel action that terminates a sequence.
const StopAction Action = "0"

// Sequence is an ordered list of actions. The zero value is the empty,
// initial sequence.
type Sequence []Action

// ParseSequence splits a comma-joined sequence string into a Sequence.
// ParseSequence("") returns an empty Sequence, and ParseSequence("-1")
// (the Metrics Parser's missing-sequence sentinel) likewise returns an
// empty Sequence since -1 carries no action tokens.
func ParseSequence(s string) Sequence {
	if s == "" || s == "-1" {
		return Sequence{}
	}
	parts := strings.Split(s, ",")
	seq := make(Sequence, len(parts))
	for i, p := range parts {
		seq[i] = Action(p)
	}
	return seq
}

// String renders the sequence in its canonical comma-joined wire form.
func (s Sequence) String() string {
	toks := make([]string, len(s))
	for i, a := range s {
		toks[i] = string(a)
	}
	return strings.Join(toks, ",")
}

// Pretty strips the trailing ",0" (or collapses a bare "0" to "").
func (s Sequence) Pretty() string {
	if len(s) == 0 {
		return ""
	}
	if s[len(s)-1] == StopAction {
		return s[:len(s)-1].String()
	}
	return s.String()
}

// Terminal reports whether the sequence ends in stop, or is itself "0".
func (s Sequence) Terminal() bool {
	return len(s) > 0 && s[len(s)-1] == StopAction
}

// Append returns a new sequence with action appended.
func (s Sequence) Append(a Action) Sequence {
	next := make(Sequence, len(s)+1)
	copy(next, s)
	next[len(s)] = a
	return next
}

// InvariantViolation is raised when a caller-supplied sequence breaks I5
// (an action repeats) or I6 (stop appears anywhere but last). This is a
// programming error, not a data error recoverable at runtime.
type InvariantViolation struct {
	Method   Method
	Sequence Sequence
	Reason   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("qv: invariant violation for %s sequence %q: %s", e.Method, e.Sequence, e.Reason)
}

// Validate checks I5 (no action appears twice) and I6 (stop only as the
// final action), panicking with *InvariantViolation on failure.
func (s Sequence) Validate(m Method) {
	seen := make(map[Action]bool, len(s))
	for i, a := range s {
		if a == StopAction && i != len(s)-1 {
			panic(&InvariantViolation{Method: m, Sequence: s, Reason: "stop action (0) is not the last action"})
		}
		if seen[a] {
			panic(&InvariantViolation{Method: m, Sequence: s, Reason: fmt.Sprintf("action %q appears more than once", a)})
		}
		seen[a] = true
	}
}

// State is a (Method, Sequence) pair. Sequence is kept as its canonical
// string form so State remains a comparable map key.
type State struct {
	Method Method
	Seq    string
}

// InitialState returns the zero-sequence state for a method.
func InitialState(m Method) State {
	return State{Method: m, Seq: ""}
}

func (s State) Sequence() Sequence {
	return ParseSequence(s.Seq)
}

func (s State) Terminal() bool {
	return s.Sequence().Terminal()
}

func (s State) String() string {
	return fmt.Sprintf("%s[%s]", s.Method, s.Seq)
}

// StateAndAction is a (State, Action) edge.
type StateAndAction struct {
	State  State
	Action Action
}

// StateData is the value stored per State (§3).
type StateData struct {
	BestPerfScore    float64
	AveragePerfScore float64
	BasePerfScore    float64
	NumVisits        int
	NumCses          uint
	NumCand          uint
	Baseline         bool
	Children         map[Action]State
}

func newStateData() *StateData {
	return &StateData{Children: make(map[Action]State)}
}

func (sd *StateData) clone() *StateData {
	cp := *sd
	cp.Children = make(map[Action]State, len(sd.Children))
	for a, s := range sd.Children {
		cp.Children[a] = s
	}
	return &cp
}

// StateAndActionData is the value stored per edge (§3).
type StateAndActionData struct {
	BestPerfScore float64
	NumVisits     int
	Baseline      bool
}

func (sad *StateAndActionData) clone() *StateAndActionData {
	cp := *sad
	return &cp
}

// ParsePerfScore is a convenience for callers turning a metrics-parser float
// string into a score, centralizing the -1 missing-value check used
// throughout MCMC/Trainer/GreedyEvaluator.
func ParsePerfScore(s string) (score float64, missing bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == -1.0 {
		return -1.0, true
	}
	return v, false
}
