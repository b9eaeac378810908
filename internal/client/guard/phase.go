package guard

// Phase is the coarse session lifecycle state.
type Phase int

const (
	// Unstarted: restore has not begun.
	Unstarted Phase = iota
	// Restoring: the persisted credential is being validated.
	Restoring
	// Authenticated: initialized with a user.
	Authenticated
	// Anonymous: initialized without a user.
	Anonymous
)

func (p Phase) String() string {
	switch p {
	case Unstarted:
		return "unstarted"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "unknown"
}

// PhaseOf derives the lifecycle phase from a session view.
func PhaseOf(v SessionView) Phase {
	switch {
	case !v.Initialized && v.Restoring:
		return Restoring
	case !v.Initialized:
		return Unstarted
	case v.User != nil:
		return Authenticated
	default:
		return Anonymous
	}
}
