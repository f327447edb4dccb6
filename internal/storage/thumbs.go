/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mojist/internal/imageio"
	applog "mojist/internal/log"
	"mojist/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// CacheDirName holds disposable data under the backgrounds directory.
	CacheDirName   = ".mojist"
	ThumbsFileName = "thumbs.sqlite"

	// EnvThumbsMaxBytes overrides the cache size cap.
	EnvThumbsMaxBytes = "MOJIST_THUMBS_MAX_BYTES"

	DefaultThumbsMaxBytes int64 = 32 * 1024 * 1024

	thumbsSchemaVersion = 1
	opTimeout           = 5 * time.Second
)

// ThumbsPath returns the cache database path for a backgrounds directory.
func ThumbsPath(bgDir string) string {
	return filepath.Join(bgDir, CacheDirName, ThumbsFileName)
}

// ThumbCache is a sqlite-backed LRU store of gallery thumbnails. Rows are
// keyed by source path and invalidated by modification time and size.
// Errors from Get and Put are logged and swallowed: the cache only speeds
// things up.
type ThumbCache struct {
	db       *sql.DB
	path     string
	capBytes int64
	log      *slog.Logger
	now      func() time.Time
}

// OpenThumbCache opens (or creates) the cache under bgDir. A database that
// fails its integrity check is backed up and recreated.
func OpenThumbCache(bgDir string, capBytes int64) (*ThumbCache, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "thumbs_open").With(slog.String("dir", bgDir))
	if strings.TrimSpace(bgDir) == "" {
		return nil, errors.New("backgrounds dir is required")
	}
	if err := os.MkdirAll(filepath.Join(bgDir, CacheDirName), 0o755); err != nil {
		l.Error("create cache dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", CacheDirName, err)
	}
	if capBytes <= 0 {
		capBytes = MaxThumbsBytesFromEnv(DefaultThumbsMaxBytes)
	}
	path := ThumbsPath(bgDir)
	db, err := openThumbsDB(path)
	if err != nil {
		l.Warn("thumb cache unusable, rebuilding", slog.Any("err", err))
		backupCacheFile(path)
		_ = os.Remove(path)
		db, err = openThumbsDB(path)
		if err != nil {
			l.Error("thumb cache rebuild failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("thumb cache ready", slog.String("path", path))
	return &ThumbCache{db: db, path: path, capBytes: capBytes, log: applog.WithComponent("thumbs"), now: time.Now}, nil
}

func openThumbsDB(path string) (*sql.DB, error) {
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		_ = db.Close()
		if err == nil {
			err = errors.New(chk)
		}
		return nil, fmt.Errorf("quick_check: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureThumbsSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureThumbsSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS thumbs (
			path         TEXT PRIMARY KEY,
			mod_time     INTEGER NOT NULL,
			size         INTEGER NOT NULL,
			w            INTEGER NOT NULL,
			h            INTEGER NOT NULL,
			blob         BLOB    NOT NULL,
			bytes        INTEGER NOT NULL,
			last_access  INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, thumbsSchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	case cur != thumbsSchemaVersion:
		// the cache is disposable: drop rows written by another layout
		if _, err := db.ExecContext(ctx, `DELETE FROM thumbs`); err != nil {
			return fmt.Errorf("reset thumbs: %w", err)
		}
		if _, err := db.ExecContext(ctx, `UPDATE version SET schema=?, app=?, updated_at=? WHERE id=1`, thumbsSchemaVersion, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// backupCacheFile copies the current cache file into a timestamped backup in .mojist/backups.
func backupCacheFile(path string) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// Path returns the database file.
func (c *ThumbCache) Path() string { return c.path }

// Get returns the cached thumbnail when path, modTime and size all match,
// and marks the row as recently used.
func (c *ThumbCache) Get(path string, modTime time.Time, size int64) (image.Image, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT blob FROM thumbs WHERE path=? AND mod_time=? AND size=?`,
		path, modTime.UnixNano(), size).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("thumb lookup failed", "path", path, "err", err)
		return nil, false
	}
	img, err := imageio.DecodePNG(bytes.NewReader(blob))
	if err != nil {
		c.log.Warn("cached thumb undecodable", "path", path, "err", err)
		_, _ = c.db.ExecContext(ctx, `DELETE FROM thumbs WHERE path=?`, path)
		return nil, false
	}
	// touch
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE path=?`, c.now().UnixNano(), path)
	return img, true
}

// Put stores img for path and evicts least recently used rows above the cap.
func (c *ThumbCache) Put(path string, modTime time.Time, size int64, img image.Image) {
	var buf bytes.Buffer
	if err := imageio.EncodePNG(&buf, img); err != nil {
		c.log.Warn("encode thumb failed", "path", path, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	b := img.Bounds()
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(path,mod_time,size,w,h,blob,bytes,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET mod_time=excluded.mod_time, size=excluded.size, w=excluded.w, h=excluded.h,
			blob=excluded.blob, bytes=excluded.bytes, last_access=excluded.last_access`,
		path, modTime.UnixNano(), size, b.Dx(), b.Dy(), buf.Bytes(), buf.Len(), c.now().UnixNano())
	if err != nil {
		c.log.Warn("store thumb failed", "path", path, "err", err)
		return
	}
	if err := c.evictToFit(ctx); err != nil {
		c.log.Warn("thumb eviction failed", "err", err)
	}
}

// evictToFit deletes least-recently-used rows until the total size fits the cap.
func (c *ThumbCache) evictToFit(ctx context.Context) error {
	total, err := c.totalBytes(ctx)
	if err != nil {
		return err
	}
	if total <= c.capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT path, bytes FROM thumbs ORDER BY last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var p string
		var sz int64
		if err := rows.Scan(&p, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, p)
		cur -= sz
		if cur <= c.capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE path IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	c.log.Debug("thumbs evicted", "count", len(victims), "cap", c.capBytes)
	return nil
}

func (c *ThumbCache) totalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(bytes),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum thumbs size: %w", err)
	}
	return total, nil
}

// TotalBytes returns the bytes currently held.
func (c *ThumbCache) TotalBytes() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.totalBytes(ctx)
}

// Len returns the number of cached thumbnails.
func (c *ThumbCache) Len() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbs`).Scan(&n)
	return n, err
}

func (c *ThumbCache) Close() error { return c.db.Close() }

// MaxThumbsBytesFromEnv reads MOJIST_THUMBS_MAX_BYTES, falling back to def
// (or 32 MiB when def is not positive).
func MaxThumbsBytesFromEnv(def int64) int64 {
	if def <= 0 {
		def = DefaultThumbsMaxBytes
	}
	v := os.Getenv(EnvThumbsMaxBytes)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
