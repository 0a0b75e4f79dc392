package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/memoriz/internal/model"
)

// apiError carries a non-2xx answer from the server.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// apiClient talks to the memoriz REST API.
type apiClient struct {
	base  string
	token string
	hc    *http.Client
}

func newClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) listEntries(ctx context.Context, board *uuid.UUID, archived string) ([]model.Entry, error) {
	path := "/api/entries"
	if board != nil {
		path = "/api/entries/by-board/" + board.String()
	}
	if archived != "" {
		path += "?archived=" + url.QueryEscape(archived)
	}
	var out []model.Entry
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *apiClient) getEntry(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	var out model.Entry
	err := c.do(ctx, http.MethodGet, "/api/entries/"+id.String(), nil, &out)
	return out, err
}

func (c *apiClient) createEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	var out model.Entry
	err := c.do(ctx, http.MethodPost, "/api/entries", e, &out)
	return out, err
}

func (c *apiClient) updateEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	var out model.Entry
	err := c.do(ctx, http.MethodPut, "/api/entries", e, &out)
	return out, err
}

func (c *apiClient) deleteEntry(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/entries/"+id.String(), nil, nil)
}

// setArchived calls do-archive or undo-archive.
func (c *apiClient) setArchived(ctx context.Context, id uuid.UUID, archived bool) (model.Entry, error) {
	action := "undo-archive"
	if archived {
		action = "do-archive"
	}
	var out model.Entry
	err := c.do(ctx, http.MethodPost, "/api/entries/"+id.String()+"/"+action, nil, &out)
	return out, err
}

func (c *apiClient) search(ctx context.Context, q string) ([]model.Entry, error) {
	var out []model.Entry
	err := c.do(ctx, http.MethodGet, "/api/entries/search?q="+url.QueryEscape(q), nil, &out)
	return out, err
}

func (c *apiClient) listBoards(ctx context.Context) ([]model.Board, error) {
	var out []model.Board
	err := c.do(ctx, http.MethodGet, "/api/boards", nil, &out)
	return out, err
}

func (c *apiClient) createBoard(ctx context.Context, b model.Board) (model.Board, error) {
	var out model.Board
	err := c.do(ctx, http.MethodPost, "/api/boards", b, &out)
	return out, err
}

func (c *apiClient) deleteBoard(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/boards/"+id.String(), nil, nil)
}

func (c *apiClient) reindex(ctx context.Context) (int, error) {
	var out struct {
		Indexed int `json:"indexed"`
	}
	err := c.do(ctx, http.MethodPost, "/api/reindex", nil, &out)
	return out.Indexed, err
}

func (c *apiClient) health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/api/_", nil, &out)
	return out, err
}
