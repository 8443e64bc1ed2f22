package chunkstore

import (
	"errors"
	"fmt"
)

// Error kinds raised by chunk stores. Every failure returned by a Store
// wraps exactly one of these sentinels, so callers can classify errors
// with errors.Is regardless of the backend that produced them.
var (
	// ErrStoreUnavailable indicates a transport- or server-level problem:
	// connection refused, DNS failure, timeout, a 5xx response, or a
	// response that could not be parsed. The store itself does not retry
	// HTTP-status failures; callers may treat this kind as retryable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrChunkNotFound indicates that the requested chunk (or sentinel
	// object) does not exist in the store. HasChunk and IsComplete convert
	// this kind to a boolean instead of returning it.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrBadChunk indicates a caller or data error: a malformed slice
	// specification, an unsupported dtype, a corrupt or truncated payload,
	// or a stored chunk whose shape/dtype disagrees with the request.
	// Never retryable.
	ErrBadChunk = errors.New("bad chunk")

	// ErrAuthorisationFailed indicates an invalid, expired or insufficient
	// credential: a malformed token, a token that does not authorise the
	// requested path, or a 401 response. Terminal; never retried.
	ErrAuthorisationFailed = errors.New("authorisation failed")
)

// badChunkf builds an ErrBadChunk with a formatted detail message.
func badChunkf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadChunk, fmt.Sprintf(format, args...))
}

// chunkNotFoundf builds an ErrChunkNotFound with a formatted detail message.
func chunkNotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrChunkNotFound, fmt.Sprintf(format, args...))
}
