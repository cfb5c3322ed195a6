// Package toolenv provides the sandboxed file-tool surface agents execute
// against. Every path is jailed to the workspace root, file sizes are
// bounded, and mutating operations are recorded in the edit log.
package toolenv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EditRecorder receives a record of every successful file mutation.
type EditRecorder interface {
	RecordEdit(path string)
}

// Env is a path-jailed tool execution environment rooted at a workspace
// directory. It is safe for concurrent use by multiple tasks.
type Env struct {
	root        string
	maxFileSize int64
	recorder    EditRecorder
}

// New creates an Env jailed to root. The recorder may be nil, in which case
// mutations are not tracked.
func New(root string, maxFileSize int64, recorder EditRecorder) (*Env, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	if maxFileSize <= 0 {
		maxFileSize = 1 << 20
	}
	return &Env{root: abs, maxFileSize: maxFileSize, recorder: recorder}, nil
}

// Root returns the absolute workspace root.
func (e *Env) Root() string {
	return e.root
}

// resolve normalizes a tool-supplied path and enforces the jail.
// Returns the absolute path and the root-relative path used for logging.
func (e *Env) resolve(op, path string) (abs, rel string, err error) {
	if path == "" {
		return "", "", &PathError{Op: op, Path: path, Reason: "empty path"}
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		abs = clean
	} else {
		abs = filepath.Join(e.root, clean)
	}
	if abs != e.root && !strings.HasPrefix(abs, e.root+string(filepath.Separator)) {
		return "", "", &PathError{Op: op, Path: path, Reason: "outside workspace root"}
	}
	rel, relErr := filepath.Rel(e.root, abs)
	if relErr != nil {
		return "", "", &PathError{Op: op, Path: path, Reason: "cannot relativize"}
	}
	return abs, rel, nil
}

// recordEdit notifies the recorder of a successful mutation.
func (e *Env) recordEdit(rel string) {
	if e.recorder != nil {
		e.recorder.RecordEdit(rel)
	}
}

// ReadFile returns the contents of a file inside the workspace.
func (e *Env) ReadFile(path string) (string, error) {
	abs, _, err := e.resolve("read_file", path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &PathError{Op: "read_file", Path: path, Reason: "file does not exist"}
	}
	if info.IsDir() {
		return "", &PathError{Op: "read_file", Path: path, Reason: "path is a directory"}
	}
	if info.Size() > e.maxFileSize {
		return "", &SizeLimitError{Path: path, Size: info.Size(), Limit: e.maxFileSize}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", &ToolError{Tool: "read_file", Reason: err.Error()}
	}
	return string(data), nil
}

// WriteFile writes content to a file, creating parent directories as needed.
func (e *Env) WriteFile(path, content string) error {
	abs, rel, err := e.resolve("write_file", path)
	if err != nil {
		return err
	}
	if int64(len(content)) > e.maxFileSize {
		return &SizeLimitError{Path: path, Size: int64(len(content)), Limit: e.maxFileSize}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return &ToolError{Tool: "write_file", Reason: err.Error()}
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return &ToolError{Tool: "write_file", Reason: err.Error()}
	}

	e.recordEdit(rel)
	return nil
}

// EditFile replaces one occurrence of oldText with newText in a file.
// The old text must appear exactly once.
func (e *Env) EditFile(path, oldText, newText string) error {
	abs, rel, err := e.resolve("edit_file", path)
	if err != nil {
		return err
	}
	if oldText == "" {
		return &ToolError{Tool: "edit_file", Reason: "old text must not be empty"}
	}

	content, err := e.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.Count(content, oldText) {
	case 0:
		return &ToolError{Tool: "edit_file", Reason: "old text not found in file"}
	case 1:
		// Exactly one match, proceed.
	default:
		return &ToolError{Tool: "edit_file", Reason: "old text is not unique in file"}
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if int64(len(updated)) > e.maxFileSize {
		return &SizeLimitError{Path: path, Size: int64(len(updated)), Limit: e.maxFileSize}
	}
	if err := os.WriteFile(abs, []byte(updated), 0644); err != nil {
		return &ToolError{Tool: "edit_file", Reason: err.Error()}
	}

	e.recordEdit(rel)
	return nil
}

// DeleteFile removes a file from the workspace.
func (e *Env) DeleteFile(path string) error {
	abs, rel, err := e.resolve("delete_file", path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return &PathError{Op: "delete_file", Path: path, Reason: "file does not exist"}
	}
	if info.IsDir() {
		return &PathError{Op: "delete_file", Path: path, Reason: "path is a directory"}
	}
	if err := os.Remove(abs); err != nil {
		return &ToolError{Tool: "delete_file", Reason: err.Error()}
	}

	e.recordEdit(rel)
	return nil
}

// ListDir returns the root-relative paths of all files under path, sorted.
// Dot-prefixed directories are skipped.
func (e *Env) ListDir(path string) ([]string, error) {
	if path == "" {
		path = "."
	}
	abs, _, err := e.resolve("list_directory", path)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != abs {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(e.root, p)
		if relErr == nil {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, &ToolError{Tool: "list_directory", Reason: err.Error()}
	}

	sort.Strings(files)
	return files, nil
}

// SearchFiles returns the root-relative paths of files whose content
// contains the pattern, searching under path.
func (e *Env) SearchFiles(pattern, path string) ([]string, error) {
	if pattern == "" {
		return nil, &ToolError{Tool: "search_files", Reason: "empty search pattern"}
	}

	files, err := e.ListDir(path)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, rel := range files {
		info, err := os.Stat(filepath.Join(e.root, rel))
		if err != nil || info.Size() > e.maxFileSize {
			continue
		}
		data, err := os.ReadFile(filepath.Join(e.root, rel))
		if err != nil {
			continue
		}
		if strings.Contains(string(data), pattern) {
			matches = append(matches, rel)
		}
	}
	return matches, nil
}
