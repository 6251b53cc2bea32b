package api

import (
	"context"
	"errors"
	"net/http"

	"FinFuzz/internal/services/fuzzy"
	"FinFuzz/internal/usecase"
	xhttp "FinFuzz/pkg/http"
)

var domainErrors = []struct {
	target error
	code   string
}{
	{fuzzy.ErrInvalidParameter, "ERR_INVALID_PARAMETER"},
	{fuzzy.ErrNumericDomain, "ERR_NUMERIC_DOMAIN"},
	{fuzzy.ErrMissingValue, "ERR_MISSING_VALUE"},
	{usecase.ErrInsufficientHistory, "ERR_INSUFFICIENT_HISTORY"},
}

// toAppError maps domain sentinels to client errors; anything else is internal.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, de := range domainErrors {
		if errors.Is(err, de.target) {
			return xhttp.NewAppError(de.code, "", err.Error(), http.StatusBadRequest).WithError(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return xhttp.ServiceUnavailableError("upstream timeout").WithError(err)
	}
	return xhttp.InternalError("Something went wrong").WithError(err)
}
