package transaction

import (
	"ledgercore/internal/core/apperror"
)

// Effect is what a status transition does to stock.
type Effect int

const (
	// EffectNone leaves stock untouched.
	EffectNone Effect = iota
	// EffectApply moves stock by the transaction's deltas.
	EffectApply
	// EffectReverse moves stock by the inverse deltas.
	EffectReverse
)

// transitions lists every allowed move and its stock effect.
var transitions = map[Status]map[Status]Effect{
	StatusPending: {
		StatusCompleted: EffectApply,
		StatusCancelled: EffectNone,
	},
	StatusCompleted: {
		StatusCancelled: EffectReverse,
	},
}

// Transition returns the stock effect of moving from one status to another,
// or INVALID_TRANSITION. Same-status moves and any move back to PENDING are
// rejected; CANCELLED is final.
func Transition(from, to Status) (Effect, error) {
	effect, ok := transitions[from][to]
	if !ok {
		return EffectNone, apperror.NewInvalidTransition(string(from), string(to))
	}
	return effect, nil
}
