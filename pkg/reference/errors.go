package reference

import (
	"errors"
	"fmt"
)

type FetchErrorKind string

const (
	FetchTimeout          FetchErrorKind = "timeout"
	FetchHTTPError        FetchErrorKind = "http_error"
	FetchTooLarge         FetchErrorKind = "too_large"
	FetchUnsupportedType  FetchErrorKind = "unsupported_type"
	FetchExtractionFailed FetchErrorKind = "extraction_failed"
)

type FetchError struct {
	Kind   FetchErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchKind reports whether err is a FetchError of the given kind.
func IsFetchKind(err error, kind FetchErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}
