package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// Manifest is the machine-readable sidecar written next to an annotated
// copy. It ties the copy back to its source and to the run.
type Manifest struct {
	RunID       uuid.UUID `json:"run_id"`
	Source      string    `json:"source"`
	SourceSHA   string    `json:"source_sha256"`
	Copy        string    `json:"copy"`
	CopySHA     string    `json:"copy_sha256"`
	Comments    int       `json:"comments"`
	Issues      int       `json:"issues"`
	Dropped     int       `json:"dropped"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// fileSHA256 returns the lowercase hex SHA-256 of the file at path.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// marshalManifestJSON encodes the sidecar.
func marshalManifestJSON(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// writeJSON writes v as indented JSON, creating parent directories.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return writeFile(path, append(b, '\n'))
}
