// Package cache implements the content-keyed dependency cache. Entries are
// directory trees stored under the cache dir, addressed by a SHA-256 key over
// the runtime pin and the contents of the configured key files. A SQLite
// index tracks usage for eviction.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/util"
)

// Key computes the cache key for a runtime pin and the key files as they
// exist in the checked-out repository. The file list is sorted so definition
// order does not change the key.
func Key(rt config.RuntimeConfig, repoDir string, keyFiles []string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "runtime:%s@%s\n", rt.Name, rt.Version)

	files := append([]string(nil), keyFiles...)
	sort.Strings(files)
	for _, rel := range files {
		f, err := os.Open(filepath.Clean(filepath.Join(repoDir, rel)))
		if err != nil {
			return "", fmt.Errorf("cache key file %s: %w", rel, err)
		}
		fmt.Fprintf(h, "file:%s\n", rel)
		if _, err := io.Copy(h, f); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("hash key file %s: %w", rel, err)
		}
		_ = f.Close()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Restore copies the cached tree for key into target. It returns false (and
// no error) on a cache miss.
func (s *Store) Restore(ctx context.Context, key, target string) (bool, error) {
	ok, err := s.touch(ctx, key)
	if err != nil {
		return false, err
	}
	entryDir := filepath.Join(s.dir, key)
	if !ok {
		// Index and payload can disagree after manual cleanup; treat any
		// mismatch as a miss.
		if _, statErr := os.Stat(entryDir); statErr != nil {
			return false, nil
		}
		if err := s.insert(ctx, key, dirSize(entryDir)); err != nil {
			return false, err
		}
	}
	if _, err := os.Stat(entryDir); err != nil {
		return false, nil
	}
	if err := os.MkdirAll(target, 0o750); err != nil {
		return false, fmt.Errorf("create cache restore target: %w", err)
	}
	if err := util.CopyDir(entryDir, target); err != nil {
		return false, fmt.Errorf("restore cache entry: %w", err)
	}
	slog.Info("Dependency cache restored", slog.String("key", shortKey(key)), logfields.Path(target))
	return true, nil
}

// Save stores the source tree under key, then evicts least-recently-used
// entries beyond the configured bound.
func (s *Store) Save(ctx context.Context, key, source string) error {
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("cache save source: %w", err)
	}
	entryDir := filepath.Join(s.dir, key)
	if err := os.RemoveAll(entryDir); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}
	if err := os.MkdirAll(entryDir, 0o750); err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	if err := util.CopyDir(source, entryDir); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	if err := s.insert(ctx, key, dirSize(entryDir)); err != nil {
		return err
	}
	evicted, err := s.evict(ctx)
	if err != nil {
		return err
	}
	for _, old := range evicted {
		if err := os.RemoveAll(filepath.Join(s.dir, old)); err != nil {
			slog.Warn("Failed to remove evicted cache entry", slog.String("key", shortKey(old)), logfields.Error(err))
		}
	}
	slog.Info("Dependency cache saved", slog.String("key", shortKey(key)), slog.Int("evicted", len(evicted)))
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
