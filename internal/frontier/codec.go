package frontier

import (
	"encoding/json"
	"fmt"
)

// payloadVersion is the current wire schema version. Version 1 is a JSON
// envelope:
//
//	{
//	  "v": 1,
//	  "url": "...",
//	  "request": {
//	    "method": "GET",
//	    "headers": [["k","v"], ...],   // order preserved
//	    "cookies": {"k": "v"},
//	    "meta": {...}
//	  }
//	}
//
// Headers travel as a pair list so their order survives the round trip.
const payloadVersion = 1

type payloadEnvelope struct {
	Version int            `json:"v"`
	URL     string         `json:"url"`
	Request payloadRequest `json:"request"`
}

type payloadRequest struct {
	Method  string            `json:"method"`
	Headers [][2]string       `json:"headers,omitempty"`
	Cookies map[string]string `json:"cookies,omitempty"`
	Meta    map[string]any    `json:"meta,omitempty"`
}

// EncodePayload serializes a request into the version-1 wire form.
func EncodePayload(r *Request) ([]byte, error) {
	env := payloadEnvelope{
		Version: payloadVersion,
		URL:     r.URL,
		Request: payloadRequest{
			Method:  r.Method,
			Cookies: r.Cookies,
			Meta:    r.Meta,
		},
	}
	if len(r.Headers) > 0 {
		env.Request.Headers = make([][2]string, 0, len(r.Headers))
		for _, p := range r.Headers {
			env.Request.Headers = append(env.Request.Headers, [2]string{p.Key, p.Value})
		}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload rebuilds a request from its wire form. Unknown schema
// versions are rejected.
func DecodePayload(data []byte) (*Request, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if env.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported payload version %d", env.Version)
	}
	r := &Request{
		URL:     env.URL,
		Method:  env.Request.Method,
		Cookies: env.Request.Cookies,
		Meta:    env.Request.Meta,
	}
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	for _, pair := range env.Request.Headers {
		r.Headers = append(r.Headers, HeaderPair{Key: pair[0], Value: pair[1]})
	}
	return r, nil
}
