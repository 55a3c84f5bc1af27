// Package ragerr defines the error taxonomy shared by the ingestion and
// retrieval pipeline.
package ragerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindExtraction        Kind = "extraction"
	KindEmbedding         Kind = "embedding"
	KindIndex             Kind = "index"
	KindSegmentation      Kind = "segmentation"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrExtraction        = &Error{Kind: KindExtraction}
	ErrEmbedding         = &Error{Kind: KindEmbedding}
	ErrIndex             = &Error{Kind: KindIndex}
	ErrSegmentation      = &Error{Kind: KindSegmentation}
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func UnsupportedFormat(op, fileType string) *Error {
	return &Error{Kind: KindUnsupportedFormat, Op: op, Message: fmt.Sprintf("file type %q is not supported", fileType)}
}

func Extraction(op, message string, err error) *Error {
	return &Error{Kind: KindExtraction, Op: op, Message: message, Err: err}
}

func Embedding(op string, err error) *Error {
	return &Error{Kind: KindEmbedding, Op: op, Err: err}
}

func Index(op string, err error) *Error {
	return &Error{Kind: KindIndex, Op: op, Err: err}
}

func Segmentation(op, message string, err error) *Error {
	return &Error{Kind: KindSegmentation, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
