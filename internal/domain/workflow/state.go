package workflow

// State is a named lifecycle state. The set of valid states is declared per
// machine through NewBuilder.
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
