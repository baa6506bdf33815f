// Package common provides shared constants, types, and utilities
// used across the Proxy Tray application.
// This file contains the size-rotated log file behind the logger.
package common

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// rotatingFile is an append-only log file. A write that would grow it past
// maxSize first moves the current content to a gzip backup next to it.
// Callers serialize access.
type rotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	f    *os.File
	size int64
}

func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	r := &rotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}

	// A file already over the limit is rotated before appending
	if info, err := os.Stat(path); err == nil && info.Size() >= maxSize {
		if err := r.archive(); err != nil {
			return nil, err
		}
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.f = f
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *rotatingFile) Write(p []byte) (int, error) {
	if r.f == nil {
		return 0, os.ErrClosed
	}
	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) rotate() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	r.f = nil
	if err := r.archive(); err != nil {
		// Keep logging into the oversized file rather than losing lines
		if oerr := r.open(); oerr != nil {
			return oerr
		}
		return err
	}
	return r.open()
}

// archive compresses the current file into a timestamped backup and prunes
// old backups.
func (r *rotatingFile) archive() error {
	stamp := time.Now().Format("20060102-150405.000000000")
	backup := fmt.Sprintf("%s.%s.gz", r.path, stamp)

	if err := compressFile(r.path, backup); err != nil {
		os.Remove(backup)
		// If compression fails, just rename
		if rerr := os.Rename(r.path, strings.TrimSuffix(backup, ".gz")); rerr != nil {
			return rerr
		}
	} else {
		os.Remove(r.path)
	}

	pruneBackups(r.path, r.maxBackups)
	return nil
}

// Close implements io.Closer.
func (r *rotatingFile) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// compressFile compresses a file using gzip.
func compressFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	gzWriter := gzip.NewWriter(dstFile)
	if _, err := io.Copy(gzWriter, srcFile); err != nil {
		gzWriter.Close()
		dstFile.Close()
		return err
	}
	if err := gzWriter.Close(); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}

// pruneBackups keeps the newest keep backups of path.
func pruneBackups(path string, keep int) {
	matches, err := filepath.Glob(path + ".*")
	if err != nil || len(matches) <= keep {
		return
	}

	// Backup names embed their timestamp, so lexical order is age order
	sort.Strings(matches)
	for _, m := range matches[:len(matches)-keep] {
		os.Remove(m)
	}
}
