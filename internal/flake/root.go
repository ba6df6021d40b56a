// Package flake locates a flake root, indexes the .nix files beneath it and
// arranges them into a navigable hierarchy.
package flake

import "errors"

const (
	// MarkerFileName identifies a flake root directory.
	MarkerFileName = "flake.nix"
	// FilePattern selects indexed files by name.
	FilePattern = "*.nix"
	// FileExtension is the extension matched by FilePattern.
	FileExtension = ".nix"
	// MaxSearchDepth bounds the number of directories inspected while locating the root.
	MaxSearchDepth = 5
)

// ErrRootUnreadable reports that the root directory itself could not be read.
var ErrRootUnreadable = errors.New("flake root unreadable")

// Root is a directory confirmed to contain the marker file.
type Root struct {
	Directory  string
	MarkerPath string
}

// IndexedFile is a .nix file located beneath a Root.
type IndexedFile struct {
	AbsolutePath string
	// RelativePath is slash separated and relative to Root.Directory.
	RelativePath string
}

// State is either Uninitialized or Located.
type State interface {
	isState()
}

// Uninitialized is the state before a root has been located.
type Uninitialized struct{}

// Located holds the root found by the most recent initialization.
type Located struct {
	Root Root
}

func (Uninitialized) isState() {}

func (Located) isState() {}

// Initialize locates the root starting at startDirectory and returns the resulting state.
// A missing marker yields Uninitialized with a nil error.
func Initialize(locator *Locator, startDirectory string) (State, error) {
	root, found, locateError := locator.Locate(startDirectory)
	if locateError != nil {
		return Uninitialized{}, locateError
	}
	if !found {
		return Uninitialized{}, nil
	}
	return Located{Root: root}, nil
}
