package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running consolr daemon over its REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL (e.g. http://localhost:5000/api).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
			return fmt.Errorf("%s", ae.Error)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

type consoleInfo struct {
	ID        string   `json:"id"`
	WorkDir   string   `json:"work_dir"`
	Command   []string `json:"command"`
	Autostart bool     `json:"autostart"`
	Live      bool     `json:"live"`
	State     string   `json:"state,omitempty"`
}

func (c *Client) Create(id, workDir string, command []string, autostart bool) error {
	return c.do(http.MethodPost, "/consoles", map[string]any{
		"id":        id,
		"work_dir":  workDir,
		"command":   command,
		"autostart": autostart,
	}, nil)
}

func (c *Client) Start(id string) error {
	return c.do(http.MethodPost, "/consoles/"+id+"/start", nil, nil)
}

func (c *Client) Stop(id string) error {
	return c.do(http.MethodPost, "/consoles/"+id+"/stop", nil, nil)
}

func (c *Client) Remove(id string) error {
	return c.do(http.MethodDelete, "/consoles/"+id, nil, nil)
}

func (c *Client) List() ([]consoleInfo, error) {
	var out []consoleInfo
	err := c.do(http.MethodGet, "/consoles", nil, &out)
	return out, err
}

func (c *Client) Logs(id string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	err := c.do(http.MethodGet, "/consoles/"+id+"/logs?text=1", nil, &out)
	return out.Text, err
}

func (c *Client) Send(id, input string) (bool, error) {
	var out struct {
		Delivered bool `json:"delivered"`
	}
	err := c.do(http.MethodPost, "/consoles/"+id+"/input", map[string]string{"input": input}, &out)
	return out.Delivered, err
}
