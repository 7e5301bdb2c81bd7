package httperr

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound     = errors.New("not found")    // 404
	ErrBadRequest   = errors.New("bad request")  // 400
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
)

type Envelope struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// JSON переводит доменную ошибку в ответ с единым конвертом.
// Неизвестные ошибки не раскрываются клиенту.
func JSON(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	kind := "internal_error"
	msg := "internal server error"

	switch {
	case errors.Is(err, ErrNotFound):
		code, kind, msg = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, ErrBadRequest):
		code, kind, msg = http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, ErrUnauthorized):
		code, kind, msg = http.StatusUnauthorized, "unauthorized", err.Error()
	case errors.Is(err, ErrForbidden):
		code, kind, msg = http.StatusForbidden, "forbidden", err.Error()
	default:
		c.Logger().Errorf("unexpected error: %v", err)
	}

	return c.JSON(code, Envelope{
		Status:    code,
		Error:     kind,
		Message:   msg,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
