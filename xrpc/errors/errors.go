package errors

import (
	"fmt"
)

type XrpcError struct {
	Tag     string `json:"error"`
	Message string `json:"message"`
}

func (x XrpcError) Error() string {
	if x.Message != "" {
		return fmt.Sprintf("%s: %s", x.Tag, x.Message)
	}
	return x.Tag
}

func NewXrpcError(opts ...ErrOpt) XrpcError {
	x := XrpcError{}
	for _, o := range opts {
		o(&x)
	}
	return x
}

type ErrOpt = func(xerr *XrpcError)

func WithTag(tag string) ErrOpt {
	return func(xerr *XrpcError) {
		xerr.Tag = tag
	}
}

func WithMessage[S ~string](s S) ErrOpt {
	return func(xerr *XrpcError) {
		xerr.Message = string(s)
	}
}

// InvalidRequestError covers malformed feed URIs and pagination cursors.
var InvalidRequestError = func(reason string) XrpcError {
	return NewXrpcError(
		WithTag("InvalidRequest"),
		WithMessage("Error: "+reason),
	)
}

// UnsupportedAlgorithmError is returned when a feed URI is well-formed but
// does not name a registered feed algorithm on this generator.
var UnsupportedAlgorithmError = NewXrpcError(
	WithTag("UnsupportedAlgorithm"),
	WithMessage("Error: Unsupported algorithm"),
)

// InternalServerError deliberately carries no internal detail; the cause is
// logged server-side only.
var InternalServerError = NewXrpcError(
	WithTag("InternalServerError"),
	WithMessage("Error: Internal server error"),
)
