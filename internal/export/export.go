// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a session transcript to one output format.
type Exporter interface {
	// Export renders the session to the target format.
	Export(sess *model.Session) ([]byte, error)

	// FileExtension returns the output extension, dot included.
	FileExtension() string
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &MarkdownExporter{IncludeTimestamps: true}, nil
	case "json":
		return &JSONExporter{}, nil
	}
	return nil, fmt.Errorf("unknown export format: %s", format)
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// ToFile exports a session into dir, deriving a collision-resistant filename
// from the session id and export time. Returns the written path.
func ToFile(exp Exporter, sess *model.Session, dir string) (string, error) {
	data, err := exp.Export(sess)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("duet-%s-%s%s",
		sess.ID, time.Now().Format("20060102-150405"), exp.FileExtension())
	path := filepath.Join(dir, name)

	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
