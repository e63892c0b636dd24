package remote

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
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/pocket"
)

// Client is a pocket.RemoteStore and pocket.Pinger talking to a server made
// with NewRouter.
type Client struct {
	base   string
	client *http.Client
}

// NewClient returns a client of the server at baseURL. A positive timeout
// bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// jdo performs an HTTP request with a json body and unmarshals the json response
// into data, when not nil.
//
// Failing to reach the server and 5xx statuses wrap pocket.ErrUnreachable, 404
// wraps pocket.ErrNotFound.
func (c *Client) jdo(ctx context.Context, method, path string, body, data any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot http %s %s: %w: %w", method, path, pocket.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return fmt.Errorf("cannot http %s %s: %w: %w", method, path, pocket.ErrUnreachable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("cannot http %s %s: %w", method, path, pocket.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("cannot http %s %s: %s: %w", method, path, resp.Status, pocket.ErrUnreachable)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("cannot http %s %s: %s: %w: %s", method, path, resp.Status, pocket.ErrMalformedRecord, strings.TrimSpace(buf.String()))
	case resp.StatusCode >= 300:
		return fmt.Errorf("cannot http %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(buf.String()))
	}
	if data == nil || buf.Len() == 0 {
		return nil
	}
	return json.Unmarshal(buf.Bytes(), data)
}

func ownerPath(owner string) string { return "/v1/owners/" + url.PathEscape(owner) + "/entries" }
func entryPath(id string) string    { return "/v1/entries/" + url.PathEscape(id) }

func (c *Client) Create(ctx context.Context, e pocket.Entry) (string, error) {
	e.ID = ""
	var jobj any
	if err := c.jdo(ctx, http.MethodPost, ownerPath(e.OwnerID), e, &jobj); err != nil {
		return "", err
	}
	jval, err := jsonpath.Get("$.id", jobj)
	if err != nil {
		return "", fmt.Errorf("cannot read created id of %q: %w", e.Name, err)
	}
	id, ok := jval.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("cannot read created id of %q: got %v", e.Name, jval)
	}
	return id, nil
}

func (c *Client) ListByOwner(ctx context.Context, owner string) ([]pocket.Entry, error) {
	var resp struct {
		Entries []pocket.Entry `json:"entries"`
	}
	if err := c.jdo(ctx, http.MethodGet, ownerPath(owner), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	err := c.jdo(ctx, http.MethodGet, entryPath(id), nil, nil)
	if errors.Is(err, pocket.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.jdo(ctx, http.MethodDelete, entryPath(id), nil, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.jdo(ctx, http.MethodGet, "/healthz", nil, nil)
}
