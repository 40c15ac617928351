/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the thin backend API.
// It lets the editor list remote scenarios and push serialized revisions.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Scenario is a minimal projection for listing.
type Scenario struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// ListScenarios returns available scenarios (read-only).
func (c *Client) ListScenarios(ctx context.Context) ([]Scenario, error) {
	var list []Scenario
	if err := c.doJSON(ctx, http.MethodGet, "/api/scenarios", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// VersionInfo describes one pushed revision of a scenario.
type VersionInfo struct {
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	Note      string `json:"note,omitempty"`
}

// ListVersions returns the revision history of a scenario, newest first.
func (c *Client) ListVersions(ctx context.Context, scenarioID int64) ([]VersionInfo, error) {
	var list []VersionInfo
	path := fmt.Sprintf("/api/scenarios/%d/versions", scenarioID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RecordEnvelope matches the server response for the latest record of a scenario.
type RecordEnvelope struct {
	ScenarioID int64           `json:"scenario_id"`
	Version    int64           `json:"version"`
	CreatedAt  string          `json:"created_at"`
	Record     json.RawMessage `json:"record"`
}

// GetRecord fetches the latest serialized record for a scenario.
func (c *Client) GetRecord(ctx context.Context, scenarioID int64) (*RecordEnvelope, error) {
	var env RecordEnvelope
	path := fmt.Sprintf("/api/scenarios/%d/record", scenarioID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// PushRequest carries a serialized record upstream.
type PushRequest struct {
	StableID string          `json:"stable_id"`
	Title    string          `json:"title"`
	Note     string          `json:"note,omitempty"`
	Record   json.RawMessage `json:"record"`
}

// PushResult reports the version assigned by the server.
type PushResult struct {
	ScenarioID int64 `json:"scenario_id"`
	Version    int64 `json:"version"`
}

// PushRecord uploads a serialized record as a new scenario revision.
// The server creates the scenario on first push of a stable ID.
func (c *Client) PushRecord(ctx context.Context, req PushRequest) (*PushResult, error) {
	var res PushResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/scenarios/push", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
