package orchestrator

import (
	"fmt"
	"slices"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/schema"
	"github.com/abhisek/tutorflow/internal/tools"
)

// State is a controller state.
type State int

const (
	StateStart State = iota
	StateRouted
	StateExtracting
	StateTerminated
	StateInvoking
	StateDone
)

var stateNames = map[State]string{
	StateStart:      "start",
	StateRouted:     "routed",
	StateExtracting: "extracting",
	StateTerminated: "terminated",
	StateInvoking:   "invoking",
	StateDone:       "done",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateDone
}

var transitions = map[State][]State{
	StateStart:      {StateRouted},
	StateRouted:     {StateExtracting, StateTerminated},
	StateExtracting: {StateInvoking, StateTerminated},
	StateInvoking:   {StateDone},
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// RequestState is the immutable state of one request. Every stage derives
// a new value; earlier values are never modified.
type RequestState struct {
	id      string
	message string
	profile *learner.Profile
	history []learner.ChatTurn
	tool    tools.ID
	params  tools.Params
	result  *tools.Result
	state   State
	trail   []State
}

// NewRequestState starts a request in StateStart.
func NewRequestState(id, message string, profile *learner.Profile, history []learner.ChatTurn) RequestState {
	return RequestState{
		id:      id,
		message: message,
		profile: profile,
		history: slices.Clone(history),
		state:   StateStart,
		trail:   []State{StateStart},
	}
}

func (s RequestState) ID() string                { return s.id }
func (s RequestState) Message() string           { return s.message }
func (s RequestState) Profile() *learner.Profile { return s.profile }
func (s RequestState) Tool() tools.ID            { return s.tool }
func (s RequestState) Params() tools.Params      { return s.params }
func (s RequestState) Result() *tools.Result     { return s.result }
func (s RequestState) State() State              { return s.state }

// History returns a copy of the chat history.
func (s RequestState) History() []learner.ChatTurn { return slices.Clone(s.history) }

// Trail returns the states visited so far, in order.
func (s RequestState) Trail() []State { return slices.Clone(s.trail) }

// to moves to next. An illegal transition is a programming error.
func (s RequestState) to(next State) RequestState {
	if !CanTransition(s.state, next) {
		panic(fmt.Sprintf("orchestrator: illegal transition %s -> %s", s.state, next))
	}
	s.state = next
	s.trail = append(slices.Clone(s.trail), next)
	return s
}

// WithRoute records the routed tool.
func (s RequestState) WithRoute(tool tools.ID) RequestState {
	s = s.to(StateRouted)
	s.tool = tool
	return s
}

// WithExtracting marks parameter extraction as started.
func (s RequestState) WithExtracting() RequestState {
	return s.to(StateExtracting)
}

// WithParams records extracted parameters. Parameters that fail their
// schema or belong to another tool are rejected.
func (s RequestState) WithParams(p tools.Params) (RequestState, error) {
	if p == nil || p.Tool() != s.tool {
		return s, fmt.Errorf("parameters for %v do not match routed tool %s", toolOf(p), s.tool)
	}
	if err := schema.Validate(p.Tool(), p); err != nil {
		return s, err
	}
	s = s.to(StateInvoking)
	s.params = p
	return s, nil
}

// WithResult records the tool result and finishes the request.
func (s RequestState) WithResult(r *tools.Result) RequestState {
	s = s.to(StateDone)
	s.result = r
	return s
}

// Terminate ends the request without a tool call. result may be nil.
func (s RequestState) Terminate(result *tools.Result) RequestState {
	s = s.to(StateTerminated)
	s.result = result
	return s
}

func toolOf(p tools.Params) any {
	if p == nil {
		return nil
	}
	return p.Tool()
}
