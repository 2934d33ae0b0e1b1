// Package vote holds the post vote state machine.
package vote

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Direction is the direction a user votes in. The integer value is what gets stored.
type Direction int8

const (
	Up   Direction = 1
	Down Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
}

func (d Direction) Valid() bool { return d == Up || d == Down }

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid vote direction %d", int8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "UP":
		*d = Up
	case "DOWN":
		*d = Down
	default:
		return fmt.Errorf("invalid vote direction %q", text)
	}
	return nil
}

// State is the vote a user currently holds on a post.
type State int8

const (
	None      State = 0
	Upvoted   State = State(Up)
	Downvoted State = State(Down)
)

func (s State) String() string {
	switch s {
	case None:
		return "NONE"
	case Upvoted:
		return "UP"
	case Downvoted:
		return "DOWN"
	default:
		return fmt.Sprintf("State(%d)", int8(s))
	}
}

// StateOf converts a stored direction into a state.
func StateOf(d Direction) State { return State(d) }

// Direction returns the direction held in s and whether s holds a vote at all.
func (s State) Direction() (Direction, bool) {
	if s == None {
		return 0, false
	}
	return Direction(s), true
}

// Transition applies a requested direction to the current state. Repeating the
// held direction clears the vote, the opposite direction flips it.
func Transition(current State, requested Direction) (next State, dUp, dDown int) {
	if current == StateOf(requested) {
		next = None
	} else {
		next = StateOf(requested)
	}
	dUp = weight(next, Upvoted) - weight(current, Upvoted)
	dDown = weight(next, Downvoted) - weight(current, Downvoted)
	return next, dUp, dDown
}

func weight(s, want State) int {
	if s == want {
		return 1
	}
	return 0
}

// Value stores the direction as its integer weight.
func (d Direction) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid vote direction %d", int8(d))
	}
	return int64(d), nil
}

func (d *Direction) Scan(src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int16:
		n = int64(v)
	case []byte:
		p, err := strconv.ParseInt(string(v), 10, 8)
		if err != nil {
			return fmt.Errorf("scan vote direction: %w", err)
		}
		n = p
	default:
		return fmt.Errorf("scan vote direction: unsupported type %T", src)
	}
	*d = Direction(n)
	if !d.Valid() {
		return fmt.Errorf("scan vote direction: invalid value %d", n)
	}
	return nil
}
