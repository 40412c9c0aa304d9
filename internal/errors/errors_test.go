package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	perrors "github.com/jrsteele09/go-platform-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorMessage(t *testing.T) {
	err := &perrors.APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "Validation failed",
		Details: []perrors.FieldError{{Field: "email", Message: "required"}},
	}
	require.Equal(t, "api error 400 VALIDATION_ERROR: Validation failed; email: required", err.Error())
}

func TestStatusOfWrapped(t *testing.T) {
	err := perrors.Wrapf(&perrors.APIError{Status: http.StatusUnauthorized}, "Gateway.Do %s", "/auth/me")
	require.True(t, perrors.IsUnauthorized(err))
	require.False(t, perrors.IsForbidden(err))
	require.Equal(t, 0, perrors.StatusOf(fmt.Errorf("plain")))
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, perrors.Wrapf(nil, "nothing"))
}
