// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/duetchat/duet-tui/internal/model"
)

// JSONExporter emits the session in its storage shape, pretty-printed.
// Round-trips through the same JSON tags the store uses.
type JSONExporter struct{}

// Export implements Exporter.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	return json.MarshalIndent(sess, "", "  ")
}

// FileExtension implements Exporter.
func (e *JSONExporter) FileExtension() string { return ".json" }
