package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrInvalidOutcome is returned when an outcome is neither a boolean nor null.
var ErrInvalidOutcome = errors.New("outcome must be true, false or null")

// Outcome is the moderation result of a block request.
type Outcome string

const (
	// OutcomeUndecided marks a request that no administrator has resolved yet.
	OutcomeUndecided Outcome = "undecided"
	// OutcomeAccepted marks a request whose domain should be blocked.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected marks a request that was reviewed and declined.
	OutcomeRejected Outcome = "rejected"
)

// Valid reports whether o is one of the three known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUndecided, OutcomeAccepted, OutcomeRejected:
		return true
	}
	return false
}

// Decided reports whether an administrator has resolved the request.
func (o Outcome) Decided() bool {
	return o == OutcomeAccepted || o == OutcomeRejected
}

func (o Outcome) String() string {
	if o == "" {
		return string(OutcomeUndecided)
	}
	return string(o)
}

// OutcomeFromBool maps the wire representation (true/false/null) to an Outcome.
func OutcomeFromBool(b *bool) Outcome {
	switch {
	case b == nil:
		return OutcomeUndecided
	case *b:
		return OutcomeAccepted
	default:
		return OutcomeRejected
	}
}

// MarshalJSON encodes accepted/rejected/undecided as true/false/null.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o {
	case OutcomeAccepted:
		return []byte("true"), nil
	case OutcomeRejected:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false or null.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = OutcomeUndecided
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return ErrInvalidOutcome
	}
	*o = OutcomeFromBool(&b)
	return nil
}
