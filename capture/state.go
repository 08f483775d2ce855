// SPDX-License-Identifier: EPL-2.0

package capture

import "fmt"

// State of a capture Session.
type State int

const (
	Idle State = iota
	Requesting
	Recording
	Stopping
	Ready
	Error
)

var stateNames = [...]string{
	Idle:       "idle",
	Requesting: "requesting",
	Recording:  "recording",
	Stopping:   "stopping",
	Ready:      "ready",
	Error:      "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Active reports whether the state owns, or is acquiring, a device stream.
func (s State) Active() bool {
	return s == Requesting || s == Recording || s == Stopping
}

var transitions = map[State][]State{
	Idle:       {Requesting},
	Requesting: {Recording, Error},
	Recording:  {Stopping, Error},
	Stopping:   {Ready, Error},
	Ready:      {Requesting, Idle},
	Error:      {Requesting, Idle},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
