package models

type Message struct {
	ID string `json:"id"`
	// Thread is the owning thread id; a message belongs to exactly one
	// thread for its lifetime.
	Thread string `json:"thread"`
	// Sender must be one of the thread's two participants.
	Sender int64 `json:"sender"`
	// Body is optional text; a message must carry a non-empty body or at
	// least one image.
	Body string `json:"body,omitempty"`
	// Images holds up to three opaque blob references. Non-empty only when
	// the thread had mutual upload consent at acceptance time.
	Images []string `json:"images,omitempty"`
	// TS is the acceptance timestamp (ns); immutable once set.
	TS int64 `json:"ts"`
}
