package provider

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/where"
)

const maxCatalogBytes = 4 << 20

// UpdateCatalog downloads a profile catalog and replaces the local copy when it
// changed. The download is validated before it touches the disk.
// It reports whether the local catalog was rewritten.
func UpdateCatalog(ctx context.Context, client *http.Client, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("download catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download catalog: unexpected status %d", resp.StatusCode)
	}

	remote, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return false, fmt.Errorf("read catalog: %w", err)
	}

	profiles, err := Decode(remote)
	if err != nil {
		return false, fmt.Errorf("decode catalog: %w", err)
	}
	if len(profiles) == 0 {
		return false, fmt.Errorf("catalog at %s has no profiles", url)
	}
	if _, err := NewRegistry(profiles...); err != nil {
		return false, fmt.Errorf("invalid catalog: %w", err)
	}

	path := filepath.Join(where.Sources(), CatalogFile)
	if local, err := filesystem.API().ReadFile(path); err == nil && sha256.Sum256(local) == sha256.Sum256(remote) {
		log.Info("catalog unchanged")
		return false, nil
	}

	if err := filesystem.WriteAtomic(path, remote, 0644); err != nil {
		return false, fmt.Errorf("write catalog: %w", err)
	}

	log.Infof("catalog updated with %d profiles", len(profiles))
	return true, nil
}
