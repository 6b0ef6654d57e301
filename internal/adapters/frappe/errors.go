// internal/adapters/frappe/errors.go
package frappe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ammerola/stockscan/internal/core/domain"
)

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Exception  string
	// ExcType is the Frappe exception class, e.g. "DoesNotExistError".
	ExcType    string
}

// Exception classes Frappe raises when it refuses a document on its merits.
var rejectionTypes = map[string]bool{
	"ValidationError":       true,
	"MandatoryError":        true,
	"LinkValidationError":   true,
	"DuplicateEntryError":   true,
	"InvalidStatusError":    true,
	"UniqueValidationError": true,
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is maps status codes and exception classes onto the domain sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case domain.ErrAuthExpired:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden ||
			e.ExcType == "AuthenticationError" || e.ExcType == "SessionExpired"
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound || e.ExcType == "DoesNotExistError"
	case domain.ErrFileTooLarge:
		return e.StatusCode == http.StatusRequestEntityTooLarge
	}
	return false
}

// Rejected reports whether the backend refused the request itself, as
// opposed to failing while serving it.
func (e *HTTPError) Rejected() bool {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return true
	}
	return rejectionTypes[e.ExcType]
}

// UserMessage returns the server's own message when it sent one.
func (e *HTTPError) UserMessage() string {
	return e.Message
}

// NetworkError is a request that got no response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes every NetworkError match domain.ErrNetwork.
func (e *NetworkError) Is(target error) bool {
	return target == domain.ErrNetwork
}

// errorBody is the error envelope Frappe returns.
type errorBody struct {
	Message        json.RawMessage `json:"message"`
	Exception      string          `json:"exception"`
	ExcType        string          `json:"exc_type"`
	ServerMessages string          `json:"_server_messages"`
}

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Method: method, Path: path}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Message = strings.TrimSpace(truncate(string(body), 200))
		return e
	}
	e.Exception = eb.Exception
	e.ExcType = eb.ExcType
	if e.ExcType == "" {
		e.ExcType = excTypeOf(eb.Exception)
	}
	if msg := serverMessage(eb.ServerMessages); msg != "" {
		e.Message = msg
		return e
	}
	var s string
	if err := json.Unmarshal(eb.Message, &s); err == nil && s != "" {
		e.Message = s
		return e
	}
	if eb.Exception != "" {
		// "frappe.exceptions.ValidationError: Item Code is mandatory"
		if _, after, ok := strings.Cut(eb.Exception, ": "); ok {
			e.Message = after
		} else {
			e.Message = eb.Exception
		}
	}
	return e
}

// serverMessage decodes _server_messages, a JSON string holding a list
// of JSON-encoded message objects.
func serverMessage(raw string) string {
	if raw == "" {
		return ""
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(list))
	for _, item := range list {
		var m struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(item), &m); err == nil && m.Message != "" {
			msgs = append(msgs, stripTags(m.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// excTypeOf pulls the class name out of "frappe.exceptions.X: message".
func excTypeOf(exception string) string {
	head, _, ok := strings.Cut(exception, ": ")
	if !ok || strings.ContainsAny(head, " \n") {
		return ""
	}
	return head[strings.LastIndexByte(head, '.')+1:]
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// IsAuthError reports whether err should trigger a token refresh.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrAuthExpired)
}
