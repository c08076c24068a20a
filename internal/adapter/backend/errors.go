package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

// APIError is a non-2xx backend answer. Message is the backend's {error} text.
type APIError struct {
	Status  int
	Message string
	err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.PublicMessage())
}

func (e *APIError) Unwrap() error { return e.err }

func (e *APIError) StatusCode() int { return e.Status }

// PublicMessage is the backend's text, or the status text when it sent none.
func (e *APIError) PublicMessage() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// ErrorMessage extracts the visitor-facing text of a backend failure, or fallback.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err came from a 401 answer.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

const maxErrorBody = 64 << 10

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodeJSON reads resp into a T, or into an *APIError for non-2xx statuses.
// The body is always closed.
func DecodeJSON[T any](resp *http.Response) (*T, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", resp.Request.URL.Path, err)
	}
	return &v, nil
}

// expectOK discards a successful body and turns failures into *APIError.
func expectOK(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	var body errorBody
	if data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
		_ = json.Unmarshal(data, &body)
	}
	apiErr.Message = body.Error
	if apiErr.Message == "" {
		apiErr.Message = body.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.err = domain.ErrUnauthorized
	case http.StatusNotFound:
		apiErr.err = domain.ErrNotFound
	}
	return apiErr
}
