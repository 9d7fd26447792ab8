// Package planning turns map clicks into report drafts or planner actions, and runs
// planner actions against the AI endpoints while keeping a chat transcript.
package planning

import (
	"fmt"
	"sync"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

type Role string

const (
	Citizen Role = "citizen"
	Planner Role = "planner"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case Citizen, Planner:
		return Role(s), nil
	}
	return "", apperr.Invalid("role", fmt.Sprintf("unknown role %q", s))
}

type Action string

const (
	UrbanOptimization    Action = "urban-optimization"
	CongestionPrediction Action = "congestion-prediction"
	TrafficAnalysis      Action = "traffic-analysis"
	ZoneAnalysis         Action = "zone-analysis"
)

// Actions lists what a planner can pick after selecting a point.
var Actions = []Action{UrbanOptimization, CongestionPrediction, TrafficAnalysis, ZoneAnalysis}

func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", apperr.Invalid("action", fmt.Sprintf("unknown action %q", s))
}

// IntentKind says what the UI should open after a click.
type IntentKind int

const (
	NoIntent IntentKind = iota
	DraftReport
	ChooseAction
)

type Intent struct {
	Kind IntentKind
	At   provider.Coordinates
}

// Session is one user's map interaction state.
type Session struct {
	role Role

	mu        sync.Mutex
	selecting bool
	selected  *provider.Coordinates
}

func NewSession(role Role) *Session {
	return &Session{role: role}
}

func (s *Session) Role() Role { return s.role }

// ToggleSelect flips planner select mode and returns the new value. Citizens never
// enter select mode.
func (s *Session) ToggleSelect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != Planner {
		return false
	}
	s.selecting = !s.selecting
	return s.selecting
}

func (s *Session) Selecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selecting
}

// Selected returns the last point a planner captured.
func (s *Session) Selected() (provider.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return provider.Coordinates{}, false
	}
	return *s.selected, true
}

// Click handles a map click outside any marker. A citizen gets a report draft. A
// planner in select mode captures the point, leaves select mode and is offered the
// actions. A planner outside select mode gets nothing.
func (s *Session) Click(at provider.Coordinates) Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.role == Citizen:
		return Intent{Kind: DraftReport, At: at}
	case s.role == Planner && s.selecting:
		p := at
		s.selected = &p
		s.selecting = false
		return Intent{Kind: ChooseAction, At: at}
	default:
		return Intent{Kind: NoIntent, At: at}
	}
}
