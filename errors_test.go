package heroes_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/heroes"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{heroes.ErrHeroNotFound, true},
		{fmt.Errorf("wrapped: %w", heroes.ErrTradeInNotFound), true},
		{heroes.ErrReferralNotFound, true},
		{heroes.ErrStatsNotFound, true},
		{heroes.ErrInvalidTransition, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := heroes.IsNotFound(tt.err); got != tt.want {
			t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestValidationErrorMatchesInvalidInput(t *testing.T) {
	err := fmt.Errorf("create: %w", heroes.ValidationError{Field: "name", Message: "required"})
	if !errors.Is(err, heroes.ErrInvalidInput) {
		t.Error("expected ValidationError to match ErrInvalidInput")
	}
	if !heroes.IsValidation(err) {
		t.Error("expected IsValidation to be true")
	}

	var ve heroes.ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Errorf("expected field name, got %+v", ve)
	}
	if heroes.IsRetryable(err) {
		t.Error("validation errors are not retryable")
	}
}

func TestMultiError(t *testing.T) {
	var me heroes.MultiError
	if me.ErrOrNil() != nil {
		t.Error("empty multi-error should be nil")
	}
	me.Add(nil)
	me.Add(heroes.ValidationError{Field: "name", Message: "required"})
	me.Add(heroes.ValidationError{Field: "device_model", Message: "required"})

	if !me.HasErrors() || len(me.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(me.Errors))
	}
	if me.Error() != "heroes: 2 errors occurred" {
		t.Errorf("unexpected message %q", me.Error())
	}
	if !errors.Is(me.ErrOrNil(), heroes.ErrInvalidInput) {
		t.Error("expected multi-error to unwrap to ErrInvalidInput")
	}
}
