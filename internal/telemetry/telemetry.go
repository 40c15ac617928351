/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry counts scenario lifecycle moments (created, saved,
// pushed, pulled) for anonymous usage metrics, plus optional crash report
// uploads. Everything is strictly opt-in: without opt-in and a configured
// endpoint every call is a no-op. Event props carry aggregate counts only,
// never scenario content.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"scenariowriter/internal/domain"
	applog "scenariowriter/internal/log"
	"scenariowriter/internal/version"
)

// EventName names a scenario lifecycle moment worth counting.
type EventName string

const (
	EventScenarioInit   EventName = "scenario_init"
	EventScenarioSaved  EventName = "scenario_saved"
	EventScenarioPushed EventName = "scenario_pushed"
	EventScenarioPulled EventName = "scenario_pulled"
)

// Config holds runtime configuration for event reporting and crash uploads.
//
// Environment variables (read by FromEnv):
// - SNW_TELEMETRY_OPT_IN: "1", "true", "yes" or "on" to enable metrics
// - SNW_TELEMETRY_URL: base URL to POST JSON events to
// - SNW_CRASH_UPLOAD_URL: URL to POST crash reports to
// - SNW_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - SNW_TELEMETRY_DEBUG: if set, logs send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv builds a Config from the SNW_TELEMETRY_* environment.
func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("SNW_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("SNW_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SNW_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SNW_TELEMETRY_DEBUG") != "",
	}
	if raw := strings.TrimSpace(os.Getenv("SNW_TELEMETRY_TIMEOUT_MS")); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// DocumentProps derives the size counters attached to scenario events from a
// structured record: scene and block counts, nothing identifying.
func DocumentProps(rec domain.Record) map[string]any {
	blocks := 0
	for _, sc := range rec.Scenes {
		blocks += len(sc.Content)
	}
	return map[string]any{"scenes": len(rec.Scenes), "blocks": blocks}
}

// envelope is the JSON wire form of one reported event.
type envelope struct {
	Name    string         `json:"name"`
	TS      time.Time      `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events and posts them from a background goroutine. It never
// blocks the editor: the queue is bounded and full-queue sends are dropped.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan envelope
	once   sync.Once
	closed chan struct{}
}

var defaultClient *Client
var defaultOnce sync.Once

// InitDefault installs the env-configured default client on first use.
func InitDefault() {
	defaultOnce.Do(func() { NewDefault(FromEnv()) })
}

// NewDefault creates and installs the default client with cfg.
func NewDefault(cfg Config) {
	defaultClient = New(cfg)
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan envelope, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether event reporting is opted in and has an endpoint.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports the default client's state.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Event queues a lifecycle event if enabled. Safe to call from anywhere.
func (c *Client) Event(name EventName, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := envelope{
		Name:    string(name),
		TS:      time.Now().UTC(),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	select {
	case c.q <- ev:
	default:
		// queue full, drop
	}
}

// Event queues a lifecycle event on the default client.
func Event(name EventName, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.q:
			buf, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			c.post(c.cfg.EventsURL, "application/json", buf, "event")
		}
	}
}

// UploadCrash posts an already serialized crash report to the crash URL if
// opted in. It runs asynchronously and drops on any error.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", body, "crash report")
}

// UploadCrash posts a crash report through the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("send failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("sent", slog.String("what", what))
	}
}
