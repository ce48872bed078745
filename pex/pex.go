// Package pex implements presentation exchange: selecting the credentials that
// satisfy a presentation definition and assembling them into a verifiable
// presentation with a presentation submission.
// https://identity.foundation/presentation-exchange/spec/v2.0.0/
package pex

import (
	"github.com/google/uuid"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/kokukuma/pex-verifier/decoder"
)

var logger = log.New("pex")

// SelectionPolicy decides how many credentials are selected per input descriptor.
type SelectionPolicy int

const (
	// FirstMatch selects the first satisfying credential of each descriptor.
	FirstMatch SelectionPolicy = iota
	// AllMatches selects every satisfying credential of each descriptor.
	AllMatches
)

func (p SelectionPolicy) String() string {
	switch p {
	case AllMatches:
		return "all"
	default:
		return "first"
	}
}

// Engine evaluates presentation definitions against candidate credentials.
// An Engine is immutable once created and safe for concurrent use.
type Engine struct {
	decoder decoder.Decoder
	policy  SelectionPolicy
	newID   func() string
}

type Option func(*Engine)

// WithDecoder sets the decoder used to turn tokens into credentials.
func WithDecoder(d decoder.Decoder) Option {
	return func(e *Engine) {
		e.decoder = d
	}
}

func WithSelectionPolicy(p SelectionPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithIDGenerator sets the generator of presentation submission ids.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) {
		e.newID = f
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		decoder: decoder.NewJWTDecoder(),
		policy:  FirstMatch,
		newID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
