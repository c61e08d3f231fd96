// duet-tui - A terminal chat surface for the Duet AI companions.
//
// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/duetchat/duet-tui/internal/api"
	"github.com/duetchat/duet-tui/internal/config"
	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/modes"
	"github.com/duetchat/duet-tui/internal/orchestrator"
	"github.com/duetchat/duet-tui/internal/registry"
	"github.com/duetchat/duet-tui/internal/storage"
	"github.com/duetchat/duet-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "duet-tui: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional debug log; the alt screen swallows stderr while running.
	if os.Getenv("DUET_DEBUG") != "" {
		if dir, err := config.ConfigDir(); err == nil {
			if f, err := tea.LogToFile(filepath.Join(dir, "debug.log"), "duet"); err == nil {
				defer f.Close()
			}
		}
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Defaults still apply; mention the broken file and carry on.
		fmt.Fprintf(os.Stderr, "duet-tui: config: %v\n", cfgErr)
	}

	dbPath, err := config.SessionDBPath()
	if err != nil {
		return err
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	reg := registry.New(store, storage.UserKey(cfg.Identity))
	sel := modes.NewSelector()
	client := api.NewClient(cfg.Server.URL, cfg.Server.Token)

	orch := orchestrator.New(reg, sel, client)
	orch.SetSubModelResolver(func(kind model.Kind) string {
		return cfg.SubModel(kind)
	})

	app := ui.NewApp(cfg, reg, sel, orch, client)
	program := tea.NewProgram(app, tea.WithAltScreen())
	app.SetProgram(program)

	// Live config reload; best-effort, the session works without it.
	if cfgPath, err := config.ConfigPath(); err == nil {
		if watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
			program.Send(ui.ConfigReloaded(next))
		}); err == nil {
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
