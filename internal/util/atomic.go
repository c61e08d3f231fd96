// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the duet-tui application.
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to path with the given permissions. The data
// lands in a temp file in the target directory first and is renamed into
// place, so a crash leaves either the old file or the complete new one,
// never a partial write.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	// The temp file must share the target's directory; a cross-filesystem
	// rename would not be atomic.
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := writeAndClose(tmp, data, perm); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// writeAndClose fills the temp file, applies the final permissions, and
// syncs it to disk before the rename makes it visible.
func writeAndClose(f *os.File, data []byte, perm os.FileMode) error {
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	return f.Sync()
}
