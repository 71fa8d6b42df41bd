package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors shared by all services. Handlers map these onto HTTP
// statuses; queries generally degrade to empty results instead of returning
// ErrNotAuthenticated / ErrUserNotFound.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrExternalService  = errors.New("external service error")
)

// taggedError keeps the user-visible message while still matching one of the
// sentinel categories via errors.Is.
type taggedError struct {
	tag error
	msg string
}

func (e *taggedError) Error() string { return e.msg }
func (e *taggedError) Unwrap() error { return e.tag }

func conflict(msg string) error { return &taggedError{tag: ErrConflict, msg: msg} }
func notFound(msg string) error { return &taggedError{tag: ErrNotFound, msg: msg} }
func external(msg string) error { return &taggedError{tag: ErrExternalService, msg: msg} }

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrExternalService):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
}
