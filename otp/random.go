package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var ErrRandomSource = errors.New("otp: secure random source unavailable")

// RandomBytes fills a new slice of n bytes from the operating system's
// cryptographically secure source. It never falls back to a weaker source;
// if the source fails the error is returned as-is for the caller to treat
// as fatal.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid length %d", ErrRandomSource, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return buf, nil
}

// RandomDigits returns a string of n decimal digits, each drawn independently
// and uniformly from 0-9. Bytes >= 250 are rejected so that the remaining
// 250 values map evenly onto 10 digits, avoiding modulo bias.
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: invalid length %d", ErrRandomSource, n)
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRandomSource, err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// randomID produces an unguessable identifier for token and code handles.
func randomID() (string, error) {
	buf, err := RandomBytes(16)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", buf), nil
}
