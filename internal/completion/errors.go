package completion

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

type Kind int

const (
	KindConnection Kind = iota
	KindTimeout
	KindStatus
	KindDecode
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindCanceled:
		return "canceled"
	default:
		return "connection"
	}
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Code)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Code, e.Body)
}

func classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	var se *StatusError
	if errors.As(err, &se) {
		return &Error{Kind: KindStatus, Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindStatus, Err: &StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message}}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &Error{Kind: KindStatus, Err: &StatusError{Code: reqErr.HTTPStatusCode}}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindConnection, Err: err}
}
