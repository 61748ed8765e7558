package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultTimeout = 2 * time.Minute

// Config holds client connection settings. It is loaded from
// ~/.quill/config.yaml and overridden by flags and environment.
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	Token          string        `yaml:"token"`
	DefaultContext string        `yaml:"default_context"`
	Timeout        time.Duration `yaml:"timeout"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("90s")
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ServerURL      string `yaml:"server_url"`
		Token          string `yaml:"token"`
		DefaultContext string `yaml:"default_context"`
		Timeout        string `yaml:"timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.ServerURL = raw.ServerURL
	c.Token = raw.Token
	c.DefaultContext = raw.DefaultContext
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// LoadConfig reads the yaml config file, returning zero config when the
// file does not exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = home + "/.quill/config.yaml"
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// MessageRequest is the body of a streaming message request
type MessageRequest struct {
	Prompt  string `json:"prompt"`
	Session string `json:"session,omitempty"`
}

// Client opens event streams against the backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client from config
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			// The stream outlives any per-request deadline; cancellation
			// comes through the request context instead.
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
			},
		},
	}
}

// StreamMessage sends a prompt and returns the SSE response body. The
// caller owns the body and must close it; canceling ctx aborts the
// stream mid-read.
func (c *Client) StreamMessage(ctx context.Context, req MessageRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: ErrProtocol, Message: "encode request", Cause: err}
	}

	url := c.baseURL + "/v1/messages/stream"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: ErrConnect, Message: "build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	zap.S().Debugw("stream_request", "url", url, "session", req.Session)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: ErrTimeout, Message: "request timed out", Cause: err}
		}
		return nil, &Error{Kind: ErrConnect, Message: "connect to " + c.baseURL, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &Error{
			Kind:    ErrStatus,
			Message: fmt.Sprintf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, &Error{Kind: ErrProtocol, Message: "unexpected content type " + ct}
	}

	return resp.Body, nil
}
