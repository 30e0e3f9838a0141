package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/core/domain"
)

const internalMessage = "internal server error"

// errorResponse is the error envelope for all API errors.
type errorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// NewHTTPErrorHandler renders every error as errorResponse. Failed workflow
// results keep their kind as the code; internal causes are never sent to
// the client. Internal failures are logged by the service; only errors
// that bypass it are logged here at error level.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var f *domain.Failure
	if errors.As(err, &f) {
		status := StatusForKind(f.Kind)
		if status == http.StatusInternalServerError {
			log.Debug().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("internal failure returned")
			return status, errorResponse{Error: internalMessage, Code: string(f.Kind)}
		}
		return status, errorResponse{Error: f.Message, Code: string(f.Kind)}
	}

	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{
			Error:   "validation failed",
			Code:    string(domain.KindValidation),
			Details: ve.Fields,
		}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			logUnhandled(log, c, err)
			return he.Code, errorResponse{Error: internalMessage}
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	logUnhandled(log, c, err)
	return http.StatusInternalServerError, errorResponse{Error: internalMessage, Code: string(domain.KindInternal)}
}

// StatusForKind maps a failure kind to its HTTP status.
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func logUnhandled(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
}
