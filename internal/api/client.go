package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// maxBody caps how much of a backend response is read.
const maxBody = 10 << 20

// TokenFunc returns the bearer credential for the request carried by
// ctx, or nil when the caller is anonymous.
type TokenFunc func(ctx context.Context) *oauth2.Token

// Client is the gateway to the LMS REST backend. It is safe for
// concurrent use; credentials are looked up per call.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenFunc
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// WithToken returns a copy of the client that attaches the token
// returned by tokens to every request.
func (c *Client) WithToken(tokens TokenFunc) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	target      string // absolute URL of a pagination link, replaces path and query
	body        io.Reader
	contentType string
	// token overrides the credential lookup, used right after login
	// before the session is stored.
	token *oauth2.Token
}

func (c *Client) credential(ctx context.Context, req request) *oauth2.Token {
	if req.token != nil {
		return req.token
	}
	if c.tokens == nil {
		return nil
	}
	return c.tokens(ctx)
}

func (c *Client) httpClient(tok *oauth2.Token) *http.Client {
	if tok == nil {
		return c.http
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(tok),
			Base:   c.http.Transport,
		},
		CheckRedirect: c.http.CheckRedirect,
		Jar:           c.http.Jar,
		Timeout:       c.http.Timeout,
	}
}

// send performs the call and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	tok := c.credential(ctx, req)
	if tok != nil && !tok.Valid() {
		return nil, &Error{
			Kind:    KindAuthenticationRequired,
			Message: "Your session has expired. Please log in again.",
		}
	}

	target := req.target
	if target == "" {
		target = c.baseURL + req.path
		if len(req.query) > 0 {
			target += "?" + req.query.Encode()
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.httpClient(tok).Do(httpReq)
	if err != nil {
		return nil, &Error{
			Kind:    KindNetworkUnavailable,
			Message: genericMessage(KindNetworkUnavailable),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &Error{
			Kind:    KindNetworkUnavailable,
			Status:  resp.StatusCode,
			Message: genericMessage(KindNetworkUnavailable),
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	body, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return malformed(err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	req := request{method: method, path: path}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		req.body = bytes.NewReader(payload)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) doForm(ctx context.Context, method, path string, form *multipartForm, out any) error {
	body, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("encode %s form: %w", path, err)
	}
	return c.do(ctx, request{method: method, path: path, body: body, contentType: contentType}, out)
}

// maxPages bounds how many next links one list call follows.
const maxPages = 50

// list fetches a collection and normalizes both response shapes. A
// paginated envelope is followed through its next links so the caller
// always gets the whole collection.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	req := request{method: http.MethodGet, path: path, query: query}
	items := []T{}

	for i := 0; i < maxPages; i++ {
		body, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		batch, next, err := decodePage[T](body)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
		if next == "" {
			return items, nil
		}

		target, err := c.resolveNext(next)
		if err != nil {
			return nil, malformed(err)
		}
		req = request{method: http.MethodGet, path: path, target: target}
	}
	return nil, malformed(fmt.Errorf("%s: more than %d pages", path, maxPages))
}

// resolveNext turns a pagination link into an absolute URL. Links that
// leave the backend's host are refused so the bearer never travels there.
func (c *Client) resolveNext(next string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("next link %q: %w", next, err)
	}
	abs := base.ResolveReference(ref)
	if abs.Host != base.Host {
		return "", fmt.Errorf("next link %q leaves %s", next, base.Host)
	}
	return abs.String(), nil
}

// decodeList accepts a bare JSON array or a single page envelope.
func decodeList[T any](body []byte) ([]T, error) {
	items, _, err := decodePage[T](body)
	return items, err
}

// decodePage accepts a bare JSON array or a paginated envelope
// {count, next, previous, results} and reports the next link.
func decodePage[T any](body []byte) ([]T, string, error) {
	trimmed := bytes.TrimSpace(body)
	items := []T{}
	var next string

	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return items, "", nil
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", malformed(err)
		}
	case trimmed[0] == '{':
		var page struct {
			Next    *string         `json:"next"`
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, "", malformed(err)
		}
		if len(page.Results) == 0 {
			return nil, "", malformed(errors.New("object without results"))
		}
		if err := json.Unmarshal(page.Results, &items); err != nil {
			return nil, "", malformed(err)
		}
		if page.Next != nil {
			next = *page.Next
		}
	default:
		return nil, "", malformed(errors.New("unexpected list shape"))
	}

	if items == nil {
		items = []T{}
	}
	return items, next, nil
}

func malformed(err error) *Error {
	return &Error{
		Kind:    KindServerError,
		Message: genericMessage(KindServerError),
		Err:     fmt.Errorf("malformed response: %w", err),
	}
}

func parseError(status int, body []byte) *Error {
	kind := kindForStatus(status)
	apiErr := &Error{Kind: kind, Status: status, Message: genericMessage(kind)}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	if detail, ok := payload["detail"].(string); ok && detail != "" {
		apiErr.Message = detail
	}
	if kind == KindValidationFailed {
		apiErr.Fields = fieldErrors(payload)
		if _, hasDetail := payload["detail"]; !hasDetail && len(apiErr.Fields) > 0 {
			apiErr.Message = firstField(apiErr.Fields)
		}
	}
	return apiErr
}

func idPath(prefix string, id int64) string {
	return fmt.Sprintf("%s%d/", prefix, id)
}
