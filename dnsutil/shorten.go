package dnsutil

import (
	"strings"
)

// shortenedError is a wrapped error so the caller doesn't lose the original error
// context, if that is of interest to them.
type shortenedError struct {
	msg string
	err error
}

func (t *shortenedError) Error() string {
	return t.msg
}

func (t *shortenedError) Unwrap() error {
	return t.err
}

// ShortenError turns the long unwieldy errors returned by network clients (the DNS
// response writer and the challenge store alike) into a succinct error for the common
// cases which don't warrant the full text in a query log line.
func ShortenError(err error) error {
	if err == nil {
		return err
	}
	m := err.Error()
	switch {
	case strings.Contains(m, "i/o timeout"),
		strings.Contains(m, "context deadline exceeded"):
		err = &shortenedError{msg: "Timeout", err: err}
	case strings.Contains(m, "connection refused"):
		err = &shortenedError{msg: "Connection refused", err: err}
	case strings.Contains(m, "broken pipe"),
		strings.Contains(m, "connection reset"):
		err = &shortenedError{msg: "Connection reset", err: err}
	}

	return err
}
