package issues

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore is a BlobStore writing under a local upload directory, served
// by the router at /uploads. The hosted object store uses the same
// interface in deployment.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func (s DiskStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid upload path: %q", path)
	}

	full := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return s.BaseURL + "/uploads/" + filepath.ToSlash(clean), nil
}
