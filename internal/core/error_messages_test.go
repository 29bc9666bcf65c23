package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped session sentinel",
			err:         fmt.Errorf("edit cell: %w", ErrSessionNotFound),
			wantCode:    "SES001",
			wantMessage: "Session not found or expired",
		},
		{
			name:        "session limit",
			err:         ErrTooManySessions,
			wantCode:    "SES002",
			wantMessage: "Too many open sessions",
		},
		{
			name:        "row out of range",
			err:         fmt.Errorf("row 12: %w", ErrRowOutOfRange),
			wantCode:    "SES004",
			wantMessage: "Row does not exist",
		},
		{
			name:        "step warning collision",
			err:         StepWarning{Step: 0, Op: OpSplit, Message: `column "p_1" already exists`},
			wantCode:    "STEP004",
			wantMessage: "A column with that name already exists",
		},
		{
			name:        "entity mismatch",
			err:         ErrEntityMismatch,
			wantCode:    "RCN001",
			wantMessage: "Entity column must be set on both tables",
		},
		{
			name:        "recipe not found",
			err:         ErrRecipeNotFound,
			wantCode:    "RCP001",
			wantMessage: "Recipe not found",
		},
		{
			name:        "compute limiter busy",
			err:         ErrTooManyJobs,
			wantCode:    "RATE001",
			wantMessage: "Server is busy",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB001",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("SESSION NOT FOUND"),
			wantCode:    "SES001",
			wantMessage: "Session not found or expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNoData)

	expected := "No data has been loaded (Code: SES003). Load a CSV, XLSX or JSON file first"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrUnknownColumn,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("load recipe: %w", ErrInvalidRecipe)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Recipe file could not be read" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, ErrInvalidRecipe) {
			t.Error("Unwrap() should return original error")
		}
	})
}
