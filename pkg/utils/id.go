package utils

import "github.com/google/uuid"

// GenThreadID returns a new thread identifier. UUIDv7 ids are
// time-ordered, so lexicographic comparison follows creation order.
func GenThreadID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenMessageID returns a new message identifier. Message store keys embed
// this id after the timestamp, so the time-ordered UUIDv7 keeps the
// (created_ts, id) tie-break stable.
func GenMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}
