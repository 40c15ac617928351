/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scenariowriter/internal/backend"
	"scenariowriter/internal/config"
	"scenariowriter/internal/crash"
	"scenariowriter/internal/domain"
	"scenariowriter/internal/export"
	applog "scenariowriter/internal/log"
	"scenariowriter/internal/script"
	"scenariowriter/internal/storage"
	"scenariowriter/internal/telemetry"
	"scenariowriter/internal/version"
)

func usage() {
	fmt.Println("ScenarioWriter — screenplay editor core")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  scenariowriter version|-v|--version          Show version")
	fmt.Println("  scenariowriter init <dir> <title>            Create a new scenario at <dir>")
	fmt.Println("  scenariowriter open <dir>                    Open scenario at <dir> and print summary")
	fmt.Println("  scenariowriter save <dir>                    Normalize and save scenario (creates backup)")
	fmt.Println("  scenariowriter import-text <dir> <file>      Replace scenario content from a script text file")
	fmt.Println("  scenariowriter export-text <dir>             Write script/scenario.txt from the manifest")
	fmt.Println("  scenariowriter export-pdf <dir> [out.pdf]    Export the script as PDF under exports/")
	fmt.Println("  scenariowriter search <dir> <query>          Full-text search over the scenario index")
	fmt.Println("  scenariowriter list                          List scenarios known to the backend")
	fmt.Println("  scenariowriter versions <id>                 List remote revisions of a scenario")
	fmt.Println("  scenariowriter push <dir> <stable-id>        Push the scenario to the backend")
	fmt.Println("  scenariowriter pull <dir> <id>               Replace scenario content from the backend")
	fmt.Println("  scenariowriter serve                         Run the thin backend server")
}

func main() {
	// initialize structured logging from the user config; env still overrides
	cfg, _, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed", slog.Any("err", cfgErr))
	}
	tcfg := telemetry.FromEnv()
	if cfg.General.TelemetryOptIn {
		tcfg.OptIn = true
	}
	telemetry.NewDefault(tcfg)
	var sh *storage.ScenarioHandle
	defer func() { crash.Recover(sh) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("ScenarioWriter — screenplay editor core")
		fmt.Println(version.String())
	case "init":
		if len(args) < 4 {
			fmt.Println("init requires <dir> and <title>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		title := args[3]
		l.Info("init scenario", slog.String("root", abs), slog.String("title", title))
		m := storage.Manifest{
			Title:    title,
			Scenario: domain.NewDocument().Record(),
		}
		h, err := storage.InitScenario(abs, m)
		if err != nil {
			fatal(l, "init failed", err)
		}
		sh = h
		telemetry.Event(telemetry.EventScenarioInit, nil)
		fmt.Println("Created scenario at", abs)
	case "open":
		sh = mustOpen(l, args)
		doc := domain.FromRecord(sh.Manifest.Scenario)
		fmt.Printf("Opened scenario: %s\n", sh.Manifest.Title)
		fmt.Printf("Scenes: %d\n", len(doc.Scenes))
		fmt.Println("Root:", sh.Root)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if rebuilt, err := storage.DetectAndRebuildIndex(ctx, sh.Root, sh.Manifest.Scenario); err != nil {
			l.Warn("index check failed", slog.Any("err", err))
		} else if rebuilt {
			fmt.Println("Index was damaged and has been rebuilt.")
		}
		if err := storage.BuildIndexIfEmpty(ctx, sh.Root, sh.Manifest.Scenario); err != nil {
			l.Warn("index build failed", slog.Any("err", err))
		}
	case "save":
		sh = mustOpen(l, args)
		// Round-trip through the document model so labels are normalized
		doc := domain.FromRecord(sh.Manifest.Scenario)
		doc.Renumber()
		sh.Manifest.Scenario = doc.Record()
		if err := storage.Save(sh); err != nil {
			fatal(l, "save failed", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := storage.UpdateIndex(ctx, sh.Root, sh.Manifest.Scenario); err != nil {
			l.Warn("index update failed", slog.Any("err", err))
		}
		if blob, err := doc.MarshalRecord(); err == nil {
			if err := storage.CommitDocSnapshot(ctx, sh, "save", blob, time.Now()); err != nil {
				l.Warn("doc snapshot failed", slog.Any("err", err))
			}
		}
		telemetry.Event(telemetry.EventScenarioSaved, telemetry.DocumentProps(sh.Manifest.Scenario))
		fmt.Println("Saved scenario and created a backup of previous manifest (if any).")
	case "import-text":
		if len(args) < 4 {
			fmt.Println("import-text requires <dir> and <file>")
			usage()
			os.Exit(2)
		}
		sh = mustOpen(l, args)
		b, err := os.ReadFile(args[3])
		if err != nil {
			fatal(l, "read script file failed", err)
		}
		doc, perrs := script.Parse(string(b))
		for _, pe := range perrs {
			fmt.Printf("warning: line %d: %s\n", pe.Line, pe.Message)
		}
		sh.Manifest.Scenario = doc.Record()
		if err := storage.Save(sh); err != nil {
			fatal(l, "save failed", err)
		}
		fmt.Printf("Imported %d scenes from %s\n", len(doc.Scenes), args[3])
	case "export-text":
		sh = mustOpen(l, args)
		doc := domain.FromRecord(sh.Manifest.Scenario)
		if err := storage.WriteScriptText(sh, script.Render(doc)); err != nil {
			fatal(l, "export-text failed", err)
		}
		fmt.Println("Wrote", storage.ScriptTextPath(sh.Root))
	case "export-pdf":
		sh = mustOpen(l, args)
		out := "scenario.pdf"
		if len(args) >= 4 {
			out = args[3]
		}
		opt := export.PDFOptions{FontPath: os.Getenv("SNW_PDF_FONT")}
		if err := export.ExportScenarioPDF(sh, out, opt); err != nil {
			fatal(l, "export-pdf failed", err)
		}
		fmt.Println("Exported PDF:", out)
	case "search":
		if len(args) < 4 {
			fmt.Println("search requires <dir> and <query>")
			usage()
			os.Exit(2)
		}
		sh = mustOpen(l, args)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := storage.BuildIndexIfEmpty(ctx, sh.Root, sh.Manifest.Scenario); err != nil {
			fatal(l, "index build failed", err)
		}
		res, err := storage.Search(ctx, sh.Root, storage.SearchQuery{Text: args[3]})
		if err != nil {
			fatal(l, "search failed", err)
		}
		for _, r := range res {
			fmt.Printf("scene %d  %-8s %s  %s\n", r.SceneNo, r.Type, r.Path, r.Snippet)
		}
		if len(res) == 0 {
			fmt.Println("no matches")
		}
	case "list":
		c := backendClient(l)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		scenarios, err := c.ListScenarios(ctx)
		if err != nil {
			fatal(l, "list scenarios failed", err)
		}
		for _, s := range scenarios {
			fmt.Printf("%-6d v%-5d %s  %s\n", s.ID, s.Version, s.UpdatedAt.Format(time.RFC3339), s.Title)
		}
		if len(scenarios) == 0 {
			fmt.Println("no scenarios")
		}
	case "versions":
		if len(args) < 3 {
			fmt.Println("versions requires <id>")
			usage()
			os.Exit(2)
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fatal(l, "invalid scenario id", err)
		}
		c := backendClient(l)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		vers, err := c.ListVersions(ctx, id)
		if err != nil {
			fatal(l, "list versions failed", err)
		}
		for _, v := range vers {
			fmt.Printf("v%-5d %s  %s\n", v.Version, v.CreatedAt, v.Note)
		}
	case "push":
		if len(args) < 4 {
			fmt.Println("push requires <dir> and <stable-id>")
			usage()
			os.Exit(2)
		}
		sh = mustOpen(l, args)
		blob, err := domain.FromRecord(sh.Manifest.Scenario).MarshalRecord()
		if err != nil {
			fatal(l, "serialize failed", err)
		}
		c := backendClient(l)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := c.PushRecord(ctx, backend.PushRequest{
			StableID: args[3],
			Title:    sh.Manifest.Title,
			Record:   json.RawMessage(blob),
		})
		if err != nil {
			fatal(l, "push failed", err)
		}
		telemetry.Event(telemetry.EventScenarioPushed, telemetry.DocumentProps(sh.Manifest.Scenario))
		fmt.Printf("Pushed scenario %d as version %d\n", res.ScenarioID, res.Version)
	case "pull":
		if len(args) < 4 {
			fmt.Println("pull requires <dir> and <id>")
			usage()
			os.Exit(2)
		}
		sh = mustOpen(l, args)
		id, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			fatal(l, "invalid scenario id", err)
		}
		c := backendClient(l)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		env, err := c.GetRecord(ctx, id)
		if err != nil {
			fatal(l, "pull failed", err)
		}
		doc, err := domain.UnmarshalRecord(env.Record)
		if err != nil {
			fatal(l, "remote record invalid", err)
		}
		doc.Renumber()
		sh.Manifest.Scenario = doc.Record()
		if err := storage.Save(sh); err != nil {
			fatal(l, "save failed", err)
		}
		if err := storage.UpdateIndex(ctx, sh.Root, sh.Manifest.Scenario); err != nil {
			l.Warn("index update failed", slog.Any("err", err))
		}
		telemetry.Event(telemetry.EventScenarioPulled, telemetry.DocumentProps(sh.Manifest.Scenario))
		fmt.Printf("Pulled scenario %d version %d (%d scenes)\n", env.ScenarioID, env.Version, len(doc.Scenes))
	case "serve":
		if err := backend.Start(); err != nil {
			fatal(l, "server failed", err)
		}
	default:
		usage()
	}
}

func mustOpen(l *slog.Logger, args []string) *storage.ScenarioHandle {
	if len(args) < 3 {
		fmt.Println(args[1], "requires <dir>")
		usage()
		os.Exit(2)
	}
	abs, _ := filepath.Abs(args[2])
	l.Info("open scenario", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		fatal(l, "open failed", err)
	}
	return h
}

func backendClient(l *slog.Logger) *backend.Client {
	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load failed", slog.Any("err", err))
		cfg = config.Defaults()
	}
	return backend.NewClient(cfg.Backend.BaseURL, token)
}

func fatal(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
