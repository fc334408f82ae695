// Package form holds the state of the price form and the pure functions that
// move it from one state to the next.
package form

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kartoza/boston-price/internal/features"
)

// ErrInFlight is returned when a prediction is started while another one for
// the same form is outstanding
var ErrInFlight = errors.New("prediction already in flight")

// ErrStaleEdit is returned for an edit older than one already applied to the
// same field
var ErrStaleEdit = errors.New("stale edit")

// State is one form: the inputs, the last price shown, and whether a
// prediction is running. It is a value; every update returns a new State.
// Revs holds the revision of the last sequenced edit per field.
type State struct {
	Inputs   features.InputVector
	Revs     [features.NumKeys]uint64
	Price    float64
	HasPrice bool
	InFlight bool
}

// New returns a form with all inputs at zero and no price
func New() State {
	return State{}
}

// SetValue stores value under key and leaves every other input untouched.
// The value is not range checked.
func SetValue(s State, key features.Key, value float64) (State, error) {
	inputs, err := s.Inputs.With(key, value)
	if err != nil {
		return s, err
	}
	s.Inputs = inputs
	return s, nil
}

// SetValueAt is SetValue for a client that numbers its edits. An edit whose
// rev is not newer than the last one applied to key is refused with
// ErrStaleEdit. Rev 0 is unsequenced and always applied.
func SetValueAt(s State, key features.Key, value float64, rev uint64) (State, error) {
	if rev == 0 {
		return SetValue(s, key, value)
	}
	i := key.Index()
	if i >= 0 && rev <= s.Revs[i] {
		return s, fmt.Errorf("%w: %s revision %d, have %d", ErrStaleEdit, key, rev, s.Revs[i])
	}
	next, err := SetValue(s, key, value)
	if err != nil {
		return s, err
	}
	next.Revs[i] = rev
	return next, nil
}

// SetText coerces text and stores it under key
func SetText(s State, key features.Key, text string) (State, error) {
	return SetValue(s, key, features.Coerce(text))
}

// BeginPredict marks a prediction as started
func BeginPredict(s State) (State, error) {
	if s.InFlight {
		return s, ErrInFlight
	}
	s.InFlight = true
	return s, nil
}

// FinishPredict records a returned price and ends the request
func FinishPredict(s State, price float64) State {
	s.Price = price
	s.HasPrice = true
	s.InFlight = false
	return s
}

// FailPredict ends the request and keeps the previous price
func FailPredict(s State) State {
	s.InFlight = false
	return s
}

// Display formats the price with two decimals, or "" before the first result
func (s State) Display() string {
	if !s.HasPrice {
		return ""
	}
	return strconv.FormatFloat(s.Price, 'f', 2, 64)
}
