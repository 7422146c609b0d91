package notify

import (
	"strings"
	"time"
)

// Priority is the urgency of an event or notification.
// The order low < medium < high < critical is total.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank maps a priority onto the total order. Unknown values rank as low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

func (p Priority) AtLeast(min Priority) bool { return p.Rank() >= min.Rank() }

// Bump returns the priority one level above p (critical stays critical).
func (p Priority) Bump() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Event is an immutable record emitted by a producer agent.
// Payload is an opaque bag interpreted only by the translator.
type Event struct {
	ID        string
	Source    string
	Type      string
	Priority  Priority
	Timestamp time.Time
	Payload   map[string]any
}

// Notification is a candidate user-visible message. It is created once and
// never mutated afterwards.
type Notification struct {
	ID        string
	Source    string
	Title     string
	Message   string
	Priority  Priority
	Timestamp time.Time
	Metadata  map[string]any
	Actions   []Action
	URL       string
}

// Action is a suggested follow-up attached to a notification
// (e.g. a confirm button on an overdue reminder).
type Action struct {
	Label  string
	Action string
}

// QuietHours is an hour-of-day window. A window whose end is numerically
// below its start wraps past midnight; start == end means "always quiet".
type QuietHours struct {
	Enabled   bool
	StartHour int
	EndHour   int
}

// Preferences gate what the user is allowed to see. They are consulted at
// dispatch time, never captured at notification creation time.
type Preferences struct {
	QuietHours                QuietHours
	MinimumPriority           Priority
	AllowCriticalInQuietHours bool

	// Sources toggles delivery per source. A source missing from the map
	// is enabled.
	Sources map[string]bool
}

func DefaultPreferences() Preferences {
	return Preferences{
		QuietHours:                QuietHours{Enabled: false, StartHour: 22, EndHour: 7},
		MinimumPriority:           PriorityLow,
		AllowCriticalInQuietHours: true,
		Sources:                   map[string]bool{},
	}
}

// EnergyLevel, StressLevel and Mode describe the user's current context as
// reported by the context provider.
type EnergyLevel string

const (
	EnergyHigh   EnergyLevel = "high"
	EnergyMedium EnergyLevel = "medium"
	EnergyLow    EnergyLevel = "low"
)

type StressLevel string

const (
	StressLow    StressLevel = "low"
	StressMedium StressLevel = "medium"
	StressHigh   StressLevel = "high"
)

type Mode string

const (
	ModeFocus    Mode = "focus"
	ModeBalanced Mode = "balanced"
	ModeRecovery Mode = "recovery"
)

type UserContext struct {
	EnergyLevel EnergyLevel
	StressLevel StressLevel
	Mode        Mode
}

func DefaultUserContext() UserContext {
	return UserContext{EnergyLevel: EnergyMedium, StressLevel: StressMedium, Mode: ModeBalanced}
}
