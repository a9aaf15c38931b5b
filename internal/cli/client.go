package cli

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

	"github.com/hyperjump/blockdex/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client calls the blockdex HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL (e.g. http://127.0.0.1:8080).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name, path string) error {
	return c.doJSON(ctx, http.MethodPost, "/project", models.ProjectRequest{ProjectName: name, ProjectPath: path}, nil)
}

// ProjectInfo returns the project's summary.
func (c *Client) ProjectInfo(ctx context.Context, name string) (*models.ProjectInfo, error) {
	var info models.ProjectInfo
	if err := c.doJSON(ctx, http.MethodGet, "/project/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteProject deletes a project and returns the server's message.
func (c *Client) DeleteProject(ctx context.Context, name string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/project/"+url.PathEscape(name), nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Generate parses path on the server and stores the blocks under name.
func (c *Client) Generate(ctx context.Context, name, path string) (*models.GenerateResponse, error) {
	var out models.GenerateResponse
	req := models.ProjectRequest{ProjectName: name, ProjectPath: path}
	if err := c.doJSON(ctx, http.MethodPost, "/project/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects returns every project name.
func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	var out struct {
		Projects []string `json:"projects"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// Search returns the blocks nearest to code.
func (c *Client) Search(ctx context.Context, name, code string) (*models.NearestBlocks, error) {
	var out models.NearestBlocks
	if err := c.doText(ctx, "/search/"+url.PathEscape(name), code, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Blocks returns every function block of the project.
func (c *Client) Blocks(ctx context.Context, name string) ([]models.CodeBlock, error) {
	var out []models.CodeBlock
	err := c.doText(ctx, "/get_blocks/"+url.PathEscape(name), "", &out)
	return out, err
}

// SearchText returns function blocks containing needle.
func (c *Client) SearchText(ctx context.Context, name, needle string) ([]models.CodeBlock, error) {
	var out []models.CodeBlock
	err := c.doText(ctx, "/search_blocks/"+url.PathEscape(name), needle, &out)
	return out, err
}

// SearchFunction returns blocks whose function name is exactly fn.
func (c *Client) SearchFunction(ctx context.Context, name, fn string) ([]models.CodeBlock, error) {
	var out []models.CodeBlock
	err := c.doText(ctx, "/search_by_function/"+url.PathEscape(name), fn, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, "application/json", r, out)
}

func (c *Client) doText(ctx context.Context, path, text string, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, "text/plain; charset=utf-8", strings.NewReader(text), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}
