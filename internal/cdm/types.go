// Package cdm reads CCSDS 508.0-B-1 Conjunction Data Messages in KVN
// and XML form.
package cdm

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// ErrNotImplemented marks declared but unbuilt operations.
var ErrNotImplemented = errors.New("not implemented")

// ParseError reports a message that could not be accepted, naming the
// field that failed.
type ParseError struct {
	Field string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cdm: field %s: %s", e.Field, e.Msg)
}

// Object is one of the two objects described by a message. Covariance
// is the symmetric 6x6 RTN matrix mirrored from the message's 21
// lower-triangular entries, nil when the message carries none. Extra
// preserves fields the reader does not model.
type Object struct {
	Designator     string
	Name           string
	IntlDesignator string
	CatalogName    string
	Maneuverable   string
	RefFrame       string

	// Position km and velocity km/s in the message's reference frame,
	// nil when the state is absent.
	Position *[3]float64
	Velocity *[3]float64

	Covariance *mat.SymDense

	Extra map[string]string
}

// CDM is a parsed conjunction data message.
type CDM struct {
	Version      string
	CreationDate time.Time
	Originator   string
	MessageID    string

	TCA              time.Time
	MissDistanceKm   float64
	RelativeSpeedKmS float64

	// CollisionProbability is the originator's own estimate, negative
	// when the message carries none.
	CollisionProbability float64

	Object1 Object
	Object2 Object

	// Extra preserves header and relative-metadata fields the reader
	// does not model.
	Extra map[string]string

	// Warnings lists non-fatal findings from parsing, such as a
	// covariance that is not positive semidefinite.
	Warnings []string
}

// ToKVN is the KVN export entry point. Export is not implemented: it
// always returns an error wrapping ErrNotImplemented.
func (c *CDM) ToKVN() (string, error) {
	return "", fmt.Errorf("cdm export: %w", ErrNotImplemented)
}
