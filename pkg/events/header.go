package events

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/dunglas/httpsfv"
)

// ParseAcceptEvents parses the Accept-Events header of h into the accepted
// protocols in client preference order. A missing header yields an empty list.
//
// Each list member must be a string or token naming the protocol. Inner lists
// and other bare item types are rejected.
func ParseAcceptEvents(h http.Header) ([]AcceptedProtocol, error) {
	values := h.Values(HeaderAcceptEvents)
	if len(values) == 0 {
		return nil, nil
	}

	list, err := httpsfv.UnmarshalList(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	accepted := make([]AcceptedProtocol, 0, len(list))
	for i, member := range list {
		item, ok := member.(httpsfv.Item)
		if !ok {
			return nil, fmt.Errorf("%w: member %d is an inner list", ErrInvalidHeader, i)
		}

		var name string
		switch v := item.Value.(type) {
		case string:
			name = v
		case httpsfv.Token:
			name = string(v)
		default:
			return nil, fmt.Errorf("%w: member %d is not a protocol name", ErrInvalidHeader, i)
		}

		accepted = append(accepted, AcceptedProtocol{
			Protocol: name,
			Params:   paramsFromSFV(item.Params),
		})
	}

	return accepted, nil
}

// FormatAcceptEvents serializes accepted protocols into an Accept-Events header value.
// Clients use it to build requests.
func FormatAcceptEvents(accepted []AcceptedProtocol) (string, error) {
	list := make(httpsfv.List, 0, len(accepted))
	for _, a := range accepted {
		item := httpsfv.NewItem(a.Protocol)
		keys := make([]string, 0, len(a.Params))
		for k := range a.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			item.Params.Add(k, a.Params[k])
		}
		list = append(list, item)
	}
	return httpsfv.Marshal(list)
}

// FormatEvents serializes a failure status into an Events header value.
func FormatEvents(s *Status) (string, error) {
	if s == nil {
		return "", nil
	}
	return httpsfv.Marshal(s.Dictionary())
}

func paramsFromSFV(p *httpsfv.Params) Params {
	if p == nil {
		return Params{}
	}

	params := make(Params, len(p.Names()))
	for _, name := range p.Names() {
		v, _ := p.Get(name)
		if tok, ok := v.(httpsfv.Token); ok {
			v = string(tok)
		}
		params[name] = v
	}
	return params
}
