package matrix

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// CreateRunDir creates a uniquely named, date-stamped directory under
// baseDir/runs and points baseDir/latest at it. The stamp carries a random
// suffix so runs started within the same second still get distinct
// directories. Artifact paths for every cell of a run live beneath the
// returned directory, so two runs can never clobber each other's cells.
func CreateRunDir(baseDir string) (string, error) {
	stamp := fmt.Sprintf("%s-%s",
		time.Now().UTC().Format("2006-01-02T15-04-05"),
		uuid.NewString()[:8])
	runDir, err := filepath.Abs(filepath.Join(baseDir, "runs", stamp))
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	if err := updateLatest(baseDir, runDir); err != nil {
		return "", err
	}
	return runDir, nil
}

// updateLatest repoints baseDir/latest without a window where the link is
// absent: symlink under a temporary name, then rename over the old link.
func updateLatest(baseDir, runDir string) error {
	tmp := filepath.Join(baseDir, ".latest-"+uuid.NewString()[:8])
	if err := os.Symlink(runDir, tmp); err != nil {
		return fmt.Errorf("creating latest symlink: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(baseDir, "latest")); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("updating latest symlink: %w", err)
	}
	return nil
}
