// Package errdefs defines the error taxonomy shared by the chat core and
// its HTTP transport. Callers classify failures with errors.Is against the
// sentinels below; HTTPStatus maps them onto transport status codes.
package errdefs

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidPair indicates a malformed participant pair (equal or
	// non-positive identifiers).
	ErrInvalidPair = errors.New("invalid participant pair")

	// ErrSelfChat indicates a user attempted to start a chat with themselves.
	ErrSelfChat = errors.New("cannot start a chat with yourself")

	// ErrNotEligible indicates the recipient only accepts chats from mutual
	// matches and the requester is not one.
	ErrNotEligible = errors.New("recipient only accepts chats from mutual matches")

	// ErrConflict indicates a storage-level race on unique-pair creation or
	// an id collision. FindOrCreate retries it internally; it should not
	// normally reach callers.
	ErrConflict = errors.New("conflict")

	// ErrForbidden indicates the actor is not an authorized participant or
	// role for the attempted operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the referenced thread or message does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUploadsDisabled indicates a message carried images while the thread
	// does not have mutual upload consent.
	ErrUploadsDisabled = errors.New("image uploads are disabled for this thread")

	// ErrTooManyAttachments indicates a message carried more images than the
	// per-message limit.
	ErrTooManyAttachments = errors.New("too many attachments")

	// ErrEmptyMessage indicates a message with neither body text nor images.
	ErrEmptyMessage = errors.New("message has no content")
)

// HTTPStatus maps a core error to an HTTP status code. Unknown errors map to
// 500 so unexpected storage failures surface as server faults.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPair),
		errors.Is(err, ErrSelfChat),
		errors.Is(err, ErrUploadsDisabled),
		errors.Is(err, ErrTooManyAttachments),
		errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotEligible):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
