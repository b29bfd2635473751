package issue

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists the canonical states in workflow order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// NormalizeStatus upper-cases and trims raw. It does not validate.
func NormalizeStatus(raw string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(raw)))
}

// ParseStatus normalizes raw and rejects anything outside the three
// canonical states. An empty input yields def.
func ParseStatus(raw string, def Status) (Status, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}

	status := NormalizeStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// CanTransition reports whether an issue may move from one state to another.
// Every pair of canonical states is allowed, including reopening DONE.
func CanTransition(from, to Status) bool {
	return from.Valid() && to.Valid()
}

// Transitions returns the states reachable from s in one update.
func Transitions(s Status) []Status {
	out := make([]Status, 0, len(Statuses)-1)
	for _, next := range Statuses {
		if next != s && CanTransition(s, next) {
			out = append(out, next)
		}
	}
	return out
}
