package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	KindNone Kind = iota
	KindAuthenticationRequired
	KindAuthorizationDenied
	KindValidationFailed
	KindNotFound
	KindNetworkUnavailable
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindValidationFailed:
		return "validation_failed"
	case KindNotFound:
		return "not_found"
	case KindNetworkUnavailable:
		return "network_unavailable"
	default:
		return "server_error"
	}
}

// Error is every failure the gateway returns. Message is the server's
// detail when it sent one.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies any error. Errors that did not come from the
// gateway count as server errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindServerError
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthenticationRequired
	case status == http.StatusForbidden:
		return KindAuthorizationDenied
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidationFailed
	default:
		return KindServerError
	}
}

func genericMessage(kind Kind) string {
	switch kind {
	case KindAuthenticationRequired:
		return "Please log in to continue."
	case KindAuthorizationDenied:
		return "You are not allowed to do that."
	case KindValidationFailed:
		return "Please check the form and try again."
	case KindNotFound:
		return "Not found."
	case KindNetworkUnavailable:
		return "Network error. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// fieldErrors flattens DRF's {"field": ["msg", ...]} into one line per field.
func fieldErrors(body map[string]any) map[string]string {
	fields := make(map[string]string)
	for name, raw := range body {
		if name == "detail" {
			continue
		}
		switch v := raw.(type) {
		case string:
			fields[name] = v
		case []any:
			var msgs []string
			for _, item := range v {
				if s, ok := item.(string); ok {
					msgs = append(msgs, s)
				}
			}
			if len(msgs) > 0 {
				fields[name] = strings.Join(msgs, " ")
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// firstField picks a deterministic message when the server sent only
// field errors.
func firstField(fields map[string]string) string {
	if msg, ok := fields["non_field_errors"]; ok {
		return msg
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0] + ": " + fields[names[0]]
}

var (
	errMissingAccess = errors.New("token response without access")
	errNoProfile     = errors.New("empty profile list")
)
