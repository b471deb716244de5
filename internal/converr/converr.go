// Package converr defines the two failure kinds a conversion can end in.
//
// A result that misses its size budget is not an error; see budget.Result.
package converr

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching.
var (
	ErrDecode = errors.New("decode failed")
	ErrEncode = errors.New("encode failed")
)

// DecodeError reports an unreadable or unsupported source.
type DecodeError struct {
	Source string // path or short description of the input
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// EncodeError reports a codec rejecting an image or a parameter.
type EncodeError struct {
	Format string
	Param  int
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s (param %d): %v", e.Format, e.Param, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// Decode wraps err as a DecodeError. A nil err yields nil.
func Decode(source string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Source: source, Err: err}
}

// Encode wraps err as an EncodeError. A nil err yields nil.
func Encode(format string, param int, err error) error {
	if err == nil {
		return nil
	}
	return &EncodeError{Format: format, Param: param, Err: err}
}
