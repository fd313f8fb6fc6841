package model

import "errors"

// Failure kinds. Every error returned by the ingestion and query code wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	// ErrDataNotFound means an expected directory, archive, or capture file is
	// missing, or an archive scan finished without finding a required member.
	ErrDataNotFound = errors.New("data not found")

	// ErrMalformedInput means a metadata line or numeric token could not be parsed.
	ErrMalformedInput = errors.New("malformed input")

	// ErrProtocolViolation means the on-disk layout broke the harvester contract,
	// e.g. a nested directory inside an archive.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrLogic means the caller asked for something the data cannot provide.
	ErrLogic = errors.New("logic error")

	// ErrIntegrity means an event without a persisted identity was externalized.
	ErrIntegrity = errors.New("integrity violation")
)

// ErrorKind returns a short label for the failure kind wrapped by err.
// Used for metrics and log attributes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataNotFound):
		return "data_not_found"
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrLogic):
		return "logic"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	default:
		return "io"
	}
}
