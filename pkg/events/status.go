package events

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dunglas/httpsfv"
)

// Reason tokens shared by protocol handlers.
const (
	ReasonInvalidConfig = "invalid-config"
	ReasonMissingParam  = "missing-param"
	ReasonUnsupported   = "unsupported"
	ReasonFailed        = "delivery-failed"
	ReasonError         = "error"
)

// Status describes why a protocol could not be configured or could not deliver.
// It implements error so handlers can return it directly.
type Status struct {
	// Protocol is the protocol that failed.
	Protocol string `json:"protocol"`

	// Code is an HTTP-style status code for the failure.
	Code int `json:"code"`

	// Reason is a short token, e.g. "upgrade-required".
	Reason string `json:"reason"`

	// Detail is an optional human-readable explanation.
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (s *Status) Error() string {
	msg := fmt.Sprintf("%s: %d %s", s.Protocol, s.Code, s.Reason)
	if s.Detail != "" {
		msg += ": " + s.Detail
	}
	return msg
}

// Dictionary returns the status as a structured-field dictionary with one
// member keyed by the protocol. The member value is the code, parameterized
// with the reason and detail. Characters a structured-field string cannot
// carry are replaced so the dictionary always serializes.
func (s *Status) Dictionary() *httpsfv.Dictionary {
	item := httpsfv.NewItem(int64(s.Code))
	if s.Reason != "" {
		if isToken(s.Reason) {
			item.Params.Add("reason", httpsfv.Token(s.Reason))
		} else {
			item.Params.Add("reason", printable(s.Reason))
		}
	}
	if detail := printable(s.Detail); detail != "" {
		item.Params.Add("detail", detail)
	}

	dict := httpsfv.NewDictionary()
	dict.Add(s.Protocol, item)
	return dict
}

// AsStatus converts an error returned by a handler into a *Status.
// Errors that are not a *Status become a 500 failure with reason "error".
func AsStatus(protocol string, err error) *Status {
	if err == nil {
		return nil
	}

	var st *Status
	if errors.As(err, &st) {
		if st.Protocol == "" {
			cp := *st
			cp.Protocol = protocol
			return &cp
		}
		return st
	}

	return &Status{
		Protocol: protocol,
		Code:     http.StatusInternalServerError,
		Reason:   ReasonError,
		Detail:   err.Error(),
	}
}

// printable maps whitespace controls to spaces and every other rune outside
// the visible ASCII range to "?".
func printable(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x20 && r <= 0x7e:
			return r
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		default:
			return '?'
		}
	}, v)
}

func isToken(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		alpha := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
		if i == 0 {
			if !alpha && c != '*' {
				return false
			}
			continue
		}
		if alpha || c >= '0' && c <= '9' || strings.IndexByte("!#$%&'*+-.^_`|~:/", c) >= 0 {
			continue
		}
		return false
	}
	return v != ""
}
