// Package translator defines the translation service contract and its
// implementations: an OpenAI-compatible LLM backend, a Google Cloud
// Translation provider, and a caching decorator.
package translator

import (
	"context"
	"errors"
	"fmt"
)

// Request is one translation request. It is immutable once built.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Context    string `json:"context,omitempty"`
}

// Result is a successful translation.
type Result struct {
	Translation string `json:"translation"`
	Cached      bool   `json:"cached"`
}

// Service is the external translation collaborator.
type Service interface {
	Name() string
	Translate(ctx context.Context, req Request) (*Result, error)
}

// ErrorKind classifies service failures.
type ErrorKind int

const (
	KindUnreachable ErrorKind = iota
	KindTimeout
	KindInvalidRequest
	KindServerError
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindInvalidRequest:
		return "invalid request"
	case KindServerError:
		return "server error"
	}
	return "unknown"
}

// ServiceError is a classified failure of a translation service.
type ServiceError struct {
	Kind ErrorKind
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translation service %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("translation service %s", e.Kind)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a timeout service failure, either
// classified or a raw context deadline.
func IsTimeout(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) && se.Kind == KindTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsUnreachable reports whether err means the backend could not be
// reached at all.
func IsUnreachable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindUnreachable
}
