package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smslab/sms-extract/internal/sms"
)

// writeSnapshot serializes one extract as indented UTF-8 JSON under the
// configured data directory. A prior snapshot at the same path is removed
// first; files are always fully rewritten, never appended.
func (c *Client) writeSnapshot(filename string, extract sms.MessageExtract) error {
	path := filepath.Join(c.cfg.DataDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("gateway: create snapshot dir: %w", err)
	}
	purgePrior(path)

	data, err := json.MarshalIndent(extract, "", "  ")
	if err != nil {
		return fmt.Errorf("gateway: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("gateway: write snapshot: %w", err)
	}
	c.logger.Info("snapshot saved", "file", filepath.Base(path), "count", extract.Count)
	c.metrics.ObserveSnapshot(extract.Count)
	return nil
}

// purgePrior removes an existing non-empty JSON snapshot at path.
func purgePrior(path string) {
	if filepath.Ext(path) != ".json" {
		return
	}
	if st, err := os.Stat(path); err != nil || st.IsDir() || st.Size() == 0 {
		return
	}
	os.Remove(path)
}
