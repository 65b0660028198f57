package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("assign: %w", ErrTeacherUnavailable)
	got := FromError(wrapped)
	assert.Equal(t, ErrTeacherUnavailable.Code, got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)

	plain := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.EqualError(t, plain, "internal server error: boom")

	assert.Nil(t, FromError(nil))
}

func TestIsComparesCodes(t *testing.T) {
	clone := Clone(ErrSlotAlreadyAssigned, "class X-A already has Monday period 1")
	assert.True(t, Is(clone, ErrSlotAlreadyAssigned))
	assert.False(t, Is(clone, ErrTeacherUnavailable))
	assert.False(t, Is(stdErrors.New("x"), ErrSlotAlreadyAssigned))
	assert.Equal(t, "class slot already assigned", ErrSlotAlreadyAssigned.Message)
}

func TestWrapUnwraps(t *testing.T) {
	cause := stdErrors.New("deadline")
	err := Wrap(cause, ErrConsistency.Code, ErrConsistency.Status, "drift")
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Clone(nil, "x"))
}
