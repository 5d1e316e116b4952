package session

// State is the coarse lifecycle of a session.
type State int

const (
	// Unresolved: the first provider notification has not been handled.
	Unresolved State = iota
	// Anonymous: resolved with no identity.
	Anonymous
	// ProfilePending: signed in, profile not loaded (missing, failed or in flight).
	ProfilePending
	// ProfileReady: signed in with a loaded profile.
	ProfileReady
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Anonymous:
		return "anonymous"
	case ProfilePending:
		return "profile_pending"
	case ProfileReady:
		return "profile_ready"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func deriveState(resolved bool, s Session) State {
	switch {
	case !resolved:
		return Unresolved
	case s.Identity == nil:
		return Anonymous
	case s.Profile == nil:
		return ProfilePending
	default:
		return ProfileReady
	}
}
