package rpc

import (
	"errors"

	"docvault/internal/domain"
	"docvault/internal/transport"
)

// toRPCError converts a service error into the error that crosses the broker.
// Errors it does not recognise are returned unchanged; the server logs them
// and replies with a generic Internal error.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := transport.AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken):
		return transport.Unauthorized(err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrFileNotFound):
		return transport.NotFound(err.Error())
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return transport.Conflict(err.Error())
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnsupportedFileType),
		errors.Is(err, domain.ErrFileTooLarge):
		return transport.BadRequest(err.Error())
	default:
		return err
	}
}

func decode(req transport.Envelope, v any) error {
	if err := req.Decode(v); err != nil {
		return transport.BadRequest("Invalid payload for " + req.Pattern)
	}
	return nil
}
