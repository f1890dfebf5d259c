package domain

type SessionStatus string

const (
	SessionEmpty      SessionStatus = "EMPTY"
	SessionBuilding   SessionStatus = "BUILDING"
	SessionSubmitting SessionStatus = "SUBMITTING"
)

// CanTransitionTo reports whether a sale session may move from one status to another.
// Submitting only resolves to Empty (sale created) or Building (sale rejected).
func CanTransitionTo(from, to SessionStatus) bool {
	switch from {
	case SessionEmpty:
		return to == SessionEmpty || to == SessionBuilding
	case SessionBuilding:
		return to == SessionBuilding || to == SessionEmpty || to == SessionSubmitting
	case SessionSubmitting:
		return to == SessionEmpty || to == SessionBuilding
	default:
		return false
	}
}

func (s SessionStatus) IsTransient() bool {
	return s == SessionSubmitting
}

// String representation (for logging)
func (s SessionStatus) String() string {
	return string(s)
}
