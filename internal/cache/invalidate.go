package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes HTTP cache entries older than maxAge.
// It inspects <key>.meta.json for SavedAt timestamp and deletes both meta and
// corresponding <key>.body when expired.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil // skip unreadable
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil // skip malformed
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return removed, nil
	}
	return removed, err
}

type entryInfo struct {
	base    string
	size    int64
	lastUse time.Time
}

// EnforceHTTPCacheLimits evicts least recently used entries until the total
// body size is at most maxBytes and the entry count at most maxCount. A zero
// limit is not enforced. Recency is the body file's modification time.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
	if maxBytes <= 0 && maxCount <= 0 {
		return 0, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var entries []entryInfo
	var total int64
	for _, d := range ents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".body") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entryInfo{
			base:    filepath.Join(dir, strings.TrimSuffix(d.Name(), ".body")),
			size:    info.Size(),
			lastUse: info.ModTime(),
		})
		total += info.Size()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].lastUse.Before(entries[j].lastUse) })

	removed := 0
	count := len(entries)
	for _, e := range entries {
		overBytes := maxBytes > 0 && total > maxBytes
		overCount := maxCount > 0 && count > maxCount
		if !overBytes && !overCount {
			break
		}
		_ = os.Remove(e.base + ".body")
		_ = os.Remove(e.base + ".meta.json")
		total -= e.size
		count--
		removed++
	}
	return removed, nil
}
