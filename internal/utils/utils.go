// Package utils contains general helper functions used across flakemap.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HiddenSegmentPrefix marks a hidden path segment.
	HiddenSegmentPrefix = "."

	homeDirectoryShorthand   = "~"
	pathSegmentSeparator     = "/"
	currentDirectorySegment  = "."
	errorHomeDirectoryFormat = "expand %s: %w"
)

// ExpandHomeDirectory resolves a leading "~" to the current user's home directory.
// Paths without the shorthand are returned unchanged.
func ExpandHomeDirectory(path string) (string, error) {
	if path != homeDirectoryShorthand &&
		!strings.HasPrefix(path, homeDirectoryShorthand+pathSegmentSeparator) &&
		!strings.HasPrefix(path, homeDirectoryShorthand+string(filepath.Separator)) {
		return path, nil
	}
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return EmptyString, fmt.Errorf(errorHomeDirectoryFormat, path, homeError)
	}
	if path == homeDirectoryShorthand {
		return homeDirectory, nil
	}
	return filepath.Join(homeDirectory, path[len(homeDirectoryShorthand)+1:]), nil
}

// RelativePathOrSelf calculates the relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)

	if cleanPath == cleanRoot {
		return currentDirectorySegment
	}

	relativePath, relErr := filepath.Rel(cleanRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// IsHiddenName reports whether a single path segment is hidden.
func IsHiddenName(name string) bool {
	return name != currentDirectorySegment && strings.HasPrefix(name, HiddenSegmentPrefix)
}

// HasHiddenSegment reports whether any segment of a relative path is hidden.
// Only the segments of the relative path are considered, so a root that itself
// lives under a hidden directory does not hide its contents.
func HasHiddenSegment(relativePath string) bool {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	for _, segment := range strings.Split(normalizedPath, pathSegmentSeparator) {
		if segment == EmptyString {
			continue
		}
		if IsHiddenName(segment) {
			return true
		}
	}
	return false
}

// SplitRelativePath splits a slash-separated relative path into its directory
// segments and final name.
func SplitRelativePath(relativePath string) ([]string, string) {
	segments := strings.Split(filepath.ToSlash(relativePath), pathSegmentSeparator)
	return segments[:len(segments)-1], segments[len(segments)-1]
}
