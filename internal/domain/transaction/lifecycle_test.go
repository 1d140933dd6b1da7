package transaction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain/transaction"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to transaction.Status
		effect   transaction.Effect
		ok       bool
	}{
		{transaction.StatusPending, transaction.StatusCompleted, transaction.EffectApply, true},
		{transaction.StatusPending, transaction.StatusCancelled, transaction.EffectNone, true},
		{transaction.StatusCompleted, transaction.StatusCancelled, transaction.EffectReverse, true},

		{transaction.StatusPending, transaction.StatusPending, 0, false},
		{transaction.StatusCompleted, transaction.StatusCompleted, 0, false},
		{transaction.StatusCompleted, transaction.StatusPending, 0, false},
		{transaction.StatusCancelled, transaction.StatusCancelled, 0, false},
		{transaction.StatusCancelled, transaction.StatusCompleted, 0, false},
		{transaction.StatusCancelled, transaction.StatusPending, 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			effect, err := transaction.Transition(tt.from, tt.to)
			if !tt.ok {
				assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
				appErr, _ := apperror.AsAppError(err)
				assert.Equal(t, string(tt.from), appErr.Details["from"])
				assert.Equal(t, string(tt.to), appErr.Details["to"])
				assert.Equal(t, apperror.KindConflict, appErr.Kind)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.effect, effect)
		})
	}
}
