package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the server rejects the bearer token.
var ErrUnauthorized = errors.New("missing or invalid authentication token")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// RemoteConfig is the part of the server configuration the controller needs.
type RemoteConfig struct {
	Settings     map[string]map[string]string
	Applications map[string]map[string]string
}

// Client talks to the actuator server's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a client for baseURL (for example http://host:7777/remoshock).
func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("actuator"),
	}
}

type commandRequest struct {
	Receiver int    `json:"receiver"`
	Action   Action `json:"action"`
	Power    int    `json:"power"`
	Duration int64  `json:"duration"`
}

// Command sends cmd to the server.
func (c *Client) Command(ctx context.Context, cmd Command) error {
	req := commandRequest{
		Receiver: cmd.Receiver,
		Action:   cmd.Action,
		Power:    cmd.Power,
		Duration: cmd.Duration.Milliseconds(),
	}
	if err := c.post(ctx, "/command", req, nil); err != nil {
		return fmt.Errorf("command %s: %w", cmd, err)
	}
	c.log.Debug("Command sent", zap.Stringer("command", cmd))
	return nil
}

// SaveSettings stores values in section of the server's settings.
func (c *Client) SaveSettings(ctx context.Context, section string, values map[string]string) error {
	body := map[string]map[string]map[string]string{
		"settings": {section: values},
	}
	if err := c.post(ctx, "/config", body, nil); err != nil {
		return fmt.Errorf("save settings %s: %w", section, err)
	}
	return nil
}

// Section returns one settings section, empty when the server has none.
func (c *Client) Section(ctx context.Context, section string) (map[string]string, error) {
	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		return nil, err
	}
	values := cfg.Settings[section]
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

// FetchConfig downloads the server configuration.
func (c *Client) FetchConfig(ctx context.Context) (*RemoteConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/config.json", nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Settings     map[string]map[string]any `json:"settings"`
		Applications map[string]map[string]any `json:"applications"`
	}
	if err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	return &RemoteConfig{
		Settings:     stringify(raw.Settings),
		Applications: stringify(raw.Applications),
	}, nil
}

// stringify flattens JSON scalars into the flat string table the rest of
// the program works with.
func stringify(in map[string]map[string]any) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for section, values := range in {
		m := make(map[string]string, len(values))
		for k, v := range values {
			switch v := v.(type) {
			case string:
				m[k] = v
			case nil:
			default:
				m[k] = fmt.Sprint(v)
			}
		}
		out[section] = m
	}
	return out
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
