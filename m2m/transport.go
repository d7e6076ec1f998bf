package m2m

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Transport injects the client's bearer token into outgoing requests. A 401
// answer triggers one ForceRefresh and one retry.
type Transport struct {
	Client *Client
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	token, err := t.Client.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(authorized(req, token, body))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token, err = t.Client.ForceRefresh(ctx)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(authorized(req, token, body))
}

func authorized(req *http.Request, token string, body []byte) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
	}
	return out
}

// bufferBody reads the request body so it can be replayed on retry.
func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("m2m: buffer request body: %w", err)
	}
	return body, nil
}
