package targets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteSDFile writes targets as a Prometheus file-SD YAML document.
// The file is replaced atomically so Prometheus never reads a partial list.
func WriteSDFile(path string, cfgs []StaticConfig) error {
	if cfgs == nil {
		cfgs = []StaticConfig{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfgs); err != nil {
		return fmt.Errorf("encode sd targets: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode sd targets: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

// ReadSDFile reads a file-SD YAML document written by WriteSDFile.
func ReadSDFile(path string) ([]StaticConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sd file: %w", err)
	}
	var cfgs []StaticConfig
	if err := yaml.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("decode sd file %s: %w", path, err)
	}
	return cfgs, nil
}

// WriteKumaExport writes the import document as indented JSON. Non-ASCII
// device names are written as-is.
func WriteKumaExport(path string, export KumaExport) error {
	data, err := MarshalKumaExport(export)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// MarshalKumaExport encodes the import document as indented JSON.
func MarshalKumaExport(export KumaExport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return nil, fmt.Errorf("encode kuma export: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // G302: target files are read by Prometheus
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
