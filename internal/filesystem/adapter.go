package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// FileStats holds basic statistics about a file.
type FileStats struct {
	Size    int64
	IsDir   bool
	ModTime time.Time
	Mode    os.FileMode
}

// FileSystemAdapter is the seam between the navigator and the os package.
type FileSystemAdapter interface {
	Open(filePath string) (io.ReadCloser, error)
	ReadFileBytes(filePath string) ([]byte, error)
	FileExists(filePath string) (bool, error)
	GetFileStats(filePath string) (*FileStats, error)
	IsValidUTF8(content []byte) bool
	SplitLines(content []byte) []string
	EvalSymlinks(path string) (string, error)
	// ListDir returns entries in the order the directory read yields them.
	ListDir(path string) ([]DirEntryInfo, error)
	CreateFile(filePath string, perm os.FileMode) error
	MakeDir(path string, perm os.FileMode) error
	RemoveFile(filePath string) error
	RemoveAll(path string) error
	Move(src, dst string) error
}

// DirEntryInfo holds information about a directory entry. IsDir reflects the
// entry itself; symlinks are not followed.
type DirEntryInfo struct {
	Name     string
	IsDir    bool
	IsHidden bool
	Mode     os.FileMode
	ModTime  time.Time
	Size     int64
}

// CheckDirectoryIsWritable performs a robust check if a directory is writable.
func CheckDirectoryIsWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s: %w", path, err)
		}
		return fmt.Errorf("could not stat path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// #nosec G404 -- rand is okay for temp file names
	tmpFileName := fmt.Sprintf("writable_test_%d_%d.tmp", time.Now().UnixNano(), rand.Intn(100000))
	tmpFilePath := filepath.Join(path, tmpFileName)

	file, err := os.Create(tmpFilePath)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied to write in directory %s: %w", path, err)
		}
		return fmt.Errorf("error creating temporary file in %s: %w", path, err)
	}
	_ = file.Close()
	_ = os.Remove(tmpFilePath)
	return nil
}

// DefaultFileSystemAdapter is the standard implementation of FileSystemAdapter using the os package.
type DefaultFileSystemAdapter struct{}

// NewDefaultFileSystemAdapter creates a new DefaultFileSystemAdapter.
func NewDefaultFileSystemAdapter() *DefaultFileSystemAdapter {
	return &DefaultFileSystemAdapter{}
}

// Open opens a file for streaming reads.
func (fs *DefaultFileSystemAdapter) Open(filePath string) (io.ReadCloser, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s: %w", filePath, err)
	}
	return f, nil
}

// ReadFileBytes reads the entire file into a byte slice.
func (fs *DefaultFileSystemAdapter) ReadFileBytes(filePath string) ([]byte, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", filePath, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading file: %s: %w", filePath, err)
		}
		return nil, fmt.Errorf("failed to read file: %s: %w", filePath, err)
	}
	return content, nil
}

// IsValidUTF8 checks if the byte slice is valid UTF-8.
func (fs *DefaultFileSystemAdapter) IsValidUTF8(content []byte) bool {
	return utf8.Valid(content)
}

// FileExists checks if a file exists.
func (fs *DefaultFileSystemAdapter) FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking if file exists %s: %w", filePath, err)
}

// GetFileStats retrieves statistics for a given file.
func (fs *DefaultFileSystemAdapter) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found for stats: %s: %w", filePath, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied getting stats for file: %s: %w", filePath, err)
		}
		return nil, fmt.Errorf("failed to get file stats for %s: %w", filePath, err)
	}

	return &FileStats{
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
		Mode:    info.Mode().Perm(),
	}, nil
}

// NormalizeNewlines converts all newline variations (\r\n and \r) to a single \n.
func NormalizeNewlines(content []byte) []byte {
	if len(content) == 0 {
		return []byte{}
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
}

// SplitLines splits the content by \n after normalizing newlines.
// A trailing newline does not produce a trailing empty line.
func (fs *DefaultFileSystemAdapter) SplitLines(content []byte) []string {
	if len(content) == 0 {
		return []string{}
	}
	sContent := string(NormalizeNewlines(content))
	if sContent == "\n" {
		return []string{""}
	}
	lines := strings.Split(sContent, "\n")
	if strings.HasSuffix(sContent, "\n") && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// EvalSymlinks evaluates symbolic links for the given path.
func (fs *DefaultFileSystemAdapter) EvalSymlinks(path string) (string, error) {
	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate symlinks for %s: %w", path, err)
	}
	return resolvedPath, nil
}

// ListDir lists the contents of a directory. Any entry that cannot be
// stat'ed fails the whole listing; partial listings are never returned.
func (fs *DefaultFileSystemAdapter) ListDir(path string) ([]DirEntryInfo, error) {
	dir, err := os.Open(path)
	if err != nil {
		return nil, listDirError(path, err)
	}
	defer dir.Close()

	// File.ReadDir keeps the order of the underlying directory read;
	// os.ReadDir would sort by name.
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, listDirError(path, err)
	}

	dirEntries := make([]DirEntryInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get info for entry %s in %s: %w", entry.Name(), path, err)
		}

		dirEntries = append(dirEntries, DirEntryInfo{
			Name:     entry.Name(),
			IsDir:    entry.IsDir(),
			IsHidden: strings.HasPrefix(entry.Name(), "."),
			Mode:     info.Mode().Perm(),
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}
	return dirEntries, nil
}

func listDirError(path string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("directory not found: %s: %w", path, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("permission denied reading directory: %s: %w", path, err)
	}
	return fmt.Errorf("failed to read directory %s: %w", path, err)
}

// CreateFile creates an empty file. It fails with fs.ErrExist if anything is
// already at filePath.
func (fs *DefaultFileSystemAdapter) CreateFile(filePath string, perm os.FileMode) error {
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close new file %s: %w", filePath, err)
	}
	return nil
}

// MakeDir creates a single directory; the parent must exist.
func (fs *DefaultFileSystemAdapter) MakeDir(path string, perm os.FileMode) error {
	if err := os.Mkdir(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// RemoveFile removes a single file or empty directory.
func (fs *DefaultFileSystemAdapter) RemoveFile(filePath string) error {
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", filePath, err)
	}
	return nil
}

// RemoveAll removes path and everything below it.
func (fs *DefaultFileSystemAdapter) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s recursively: %w", path, err)
	}
	return nil
}

// Move renames src to dst, creating dst's parent directory if needed.
func (fs *DefaultFileSystemAdapter) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to prepare destination for %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

// Ensure DefaultFileSystemAdapter implements FileSystemAdapter
var _ FileSystemAdapter = (*DefaultFileSystemAdapter)(nil)
