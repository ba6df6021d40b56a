package flake

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

const (
	// GitIgnoreFileName is read from the root when gitignore filtering is enabled.
	GitIgnoreFileName = ".gitignore"

	ignoreCommentPrefix    = "#"
	errorReadIgnoreFormat  = "reading %s: %w"
	errorCloseIgnoreFormat = "closing %s: %w"
)

// loadIgnorePatterns reads non-empty, non-comment lines from an ignore file.
// A missing file yields no patterns.
func loadIgnorePatterns(fileSystem afero.Fs, ignoreFilePath string) (patterns []string, err error) {
	fileHandle, openError := fileSystem.Open(ignoreFilePath)
	if openError != nil {
		if errors.Is(openError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(errorReadIgnoreFormat, ignoreFilePath, openError)
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil && err == nil {
			err = fmt.Errorf(errorCloseIgnoreFormat, ignoreFilePath, closeError)
		}
	}()

	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, ignoreCommentPrefix) {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf(errorReadIgnoreFormat, ignoreFilePath, scanError)
	}
	return patterns, nil
}

// compileRootIgnore builds a matcher from the root's .gitignore, or nil when it has no patterns.
func compileRootIgnore(fileSystem afero.Fs, root Root) (*gitignore.GitIgnore, error) {
	patterns, loadError := loadIgnorePatterns(fileSystem, filepath.Join(root.Directory, GitIgnoreFileName))
	if loadError != nil {
		return nil, loadError
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return gitignore.CompileIgnoreLines(patterns...), nil
}
