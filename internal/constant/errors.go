package constant

import "errors"

// Errors returned by services and mapped to HTTP statuses by the error
// handler middleware.
var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrChatSessionNotFound  = errors.New("chat session not found")
	ErrFileTooLarge         = errors.New("file exceeds the maximum upload size")
	ErrEmptyFile            = errors.New("file is empty")
	ErrFileTypeNotAllowed   = errors.New("file type is not allowed")
	ErrInvalidDocumentState = errors.New("document cannot change to the requested state")
)
