// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/runtimeeditor/history/internal/storage"
	v1 "github.com/runtimeeditor/history/internal/storage/memory/export/v1"
)

const (
	compressedExt = ".runtimemap"
	plainExt      = ".json"
)

// fileBase turns a save name into a safe file name stem.
func fileBase(name string) string {
	base := strings.ReplaceAll(name, " ", "_")
	base = strings.ReplaceAll(base, ":", "_")
	base = strings.ReplaceAll(base, "/", "_")
	return strings.ReplaceAll(base, `\`, "_")
}

// exportFile writes the save file to the output directory. Caller holds b.mu.
func (b *Backend) exportFile(f v1.File) error {
	ext := plainExt
	if b.cfg.CompressOutput {
		ext = compressedExt
	}
	outputPath := filepath.Join(b.cfg.OutputDir, fileBase(f.Name)+ext)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, f)
	} else {
		err = writeJSON(outputPath, f)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) readFile(name string) (v1.File, error) {
	if b.cfg.OutputDir == "" {
		return v1.File{}, fmt.Errorf("load %q: %w", name, storage.ErrNotFound)
	}
	for _, ext := range []string{compressedExt, plainExt} {
		path := filepath.Join(b.cfg.OutputDir, fileBase(name)+ext)
		f, err := readSaveFile(path, ext == compressedExt)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return f, err
	}
	return v1.File{}, fmt.Errorf("load %q: %w", name, storage.ErrNotFound)
}

// listFiles returns the save names stored in the output directory.
func (b *Backend) listFiles() ([]string, error) {
	if b.cfg.OutputDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(b.cfg.OutputDir, entry.Name())
		switch filepath.Ext(entry.Name()) {
		case compressedExt:
			f, err := readSaveFile(path, true)
			if err == nil {
				names = append(names, f.Name)
			}
		case plainExt:
			f, err := readSaveFile(path, false)
			if err == nil {
				names = append(names, f.Name)
			}
		}
	}
	return names, nil
}

// removeFiles deletes both file variants for the name. Caller holds b.mu.
func (b *Backend) removeFiles(name string) (bool, error) {
	if b.cfg.OutputDir == "" {
		return false, nil
	}
	removed := false
	for _, ext := range []string{compressedExt, plainExt} {
		path := filepath.Join(b.cfg.OutputDir, fileBase(name)+ext)
		err := os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed = true
	}
	return removed, nil
}

func writeJSON(path string, data v1.File) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data v1.File) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode save file: %w", err)
	}
	return gzWriter.Close()
}

func readSaveFile(path string, compressed bool) (v1.File, error) {
	var out v1.File

	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return out, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return out, nil
}
