package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappersMatchSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{Validation("quantity", "must be positive"), ErrValidation},
		{NotFound("order", "abc"), ErrNotFound},
		{InsufficientQuantity("p1", "l1", 5, 2), ErrInsufficientQuantity},
		{InsufficientStock("p1", 10, 8), ErrInsufficientStock},
		{InvalidState("order", "shipped", "pick"), ErrInvalidStateTransition},
		{ConfigurationMissing("numbering template"), ErrConfigurationMissing},
		{QuantityMismatch("order line 1", 10, 6), ErrQuantityMismatch},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, tt.err, tt.sentinel, "%v", tt.err)
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("line 2: %w", InsufficientStock("p1", 10, 8))
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var qe *QuantityError
	assert.True(t, errors.As(err, &qe))
	assert.Equal(t, 10.0, qe.Requested)
	assert.Equal(t, 8.0, qe.Available)
}

func TestMismatchErrorDetail(t *testing.T) {
	err := QuantityMismatch("order line 3", 10, 6)

	var me *MismatchError
	assert.True(t, errors.As(err, &me))
	assert.Equal(t, "order line 3", me.Subject)
	assert.Contains(t, err.Error(), "order line 3")
}

func TestStockClassesAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, InsufficientStock("p1", 1, 0), ErrInsufficientQuantity)
	assert.NotErrorIs(t, InsufficientQuantity("p1", "l1", 1, 0), ErrInsufficientStock)
}
