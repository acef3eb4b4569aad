package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Security errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
)

// validatePath ensures path is within root (prevents traversal) and returns
// the absolute path
func (s *Store) validatePath(relPath string) (string, error) {
	cleanPath := filepath.Clean(filepath.FromSlash(relPath))

	// Prevent absolute paths
	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}

	for _, elem := range strings.Split(cleanPath, string(filepath.Separator)) {
		if elem == ".." {
			return "", ErrPathTraversal
		}
	}

	absPath, err := filepath.Abs(filepath.Join(s.root, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	// Security check: ensure file is within the store
	if !strings.HasPrefix(absPath, s.root+string(filepath.Separator)) && absPath != s.root {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// relative converts an absolute path under root to the slash-separated form
// stored in the index
func (s *Store) relative(absPath string) (string, error) {
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// readFile reads a file below root
func (s *Store) readFile(relPath string) ([]byte, error) {
	fullPath, err := s.validatePath(relPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// writeFileAtomic writes content to a temp file in the destination directory
// and renames it into place
func writeFileAtomic(fullPath string, content []byte) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Delete removes a file by its path
func (s *Store) Delete(relPath string) error {
	fullPath, err := s.validatePath(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			// File already doesn't exist, not an error
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a file is present below root
func (s *Store) Exists(relPath string) bool {
	fullPath, err := s.validatePath(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}
