package s3

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hupe1980/chunkstore"
)

// badChunkf builds an ErrBadChunk with a formatted detail message.
func badChunkf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", chunkstore.ErrBadChunk, fmt.Sprintf(format, args...))
}

// authFailedf builds an ErrAuthorisationFailed with a formatted detail
// message.
func authFailedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", chunkstore.ErrAuthorisationFailed, fmt.Sprintf(format, args...))
}

// unavailablef builds an ErrStoreUnavailable with a formatted detail
// message.
func unavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", chunkstore.ErrStoreUnavailable, fmt.Sprintf(format, args...))
}

// statusToError converts a response status into the matching error kind,
// or nil for a 2xx response.
//
// A 403 is treated like a 404 when the request addressed an object below
// a bucket: RADOS Gateway reports missing objects as 403 once requests
// are authenticated, while plain servers use 404. At bucket level the
// same statuses mean the store (or the credential) is the problem.
func statusToError(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return authFailedf("%s %s returned %s",
			resp.Request.Method, resp.Request.URL, resp.Status)
	case code == http.StatusForbidden || code == http.StatusNotFound:
		if objectRequest(resp.Request.URL.Path) {
			return fmt.Errorf("%w: %s %s returned %s",
				chunkstore.ErrChunkNotFound, resp.Request.Method, resp.Request.URL, resp.Status)
		}
	}
	return unavailablef("%s %s returned %s", resp.Request.Method, resp.Request.URL, resp.Status)
}

// objectRequest reports whether a request path addresses an object below
// a bucket rather than the bucket (or service) itself.
func objectRequest(path string) bool {
	return strings.Contains(strings.Trim(path, "/"), "/")
}

// translateError maps raw transport failures onto the store error kinds.
// Errors already carrying a kind pass through unchanged; everything else
// (dead connections, DNS failures, timeouts, unparseable responses)
// becomes ErrStoreUnavailable.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		chunkstore.ErrBadChunk,
		chunkstore.ErrChunkNotFound,
		chunkstore.ErrAuthorisationFailed,
		chunkstore.ErrStoreUnavailable,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", chunkstore.ErrStoreUnavailable, err)
}
