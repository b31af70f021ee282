package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// deriveManifestSidecarPath returns the manifest path next to the
// annotated copy.
func deriveManifestSidecarPath(copyPath string) string {
	return copyPath + ".manifest.json"
}

// deriveContentDetailsPath returns <outDir>/<base>_content_details.txt for
// the source document src.
func deriveContentDetailsPath(outDir, src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, base+"_content_details.txt")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
