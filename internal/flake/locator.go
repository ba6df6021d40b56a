package flake

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	errorWorkingDirectoryFormat = "determine working directory: %w"
	errorAbsolutePathFormat     = "getting absolute path for %s: %w"
	errorStatMarkerFormat       = "locating flake root: %w"
)

// Locator searches upward from a start directory for the marker file.
type Locator struct {
	FileSystem afero.Fs
	Logger     *zap.Logger
}

// NewLocator constructs a Locator reading from fileSystem.
func NewLocator(fileSystem afero.Fs, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{FileSystem: fileSystem, Logger: logger}
}

// Locate inspects startDirectory and its ancestors, at most MaxSearchDepth
// directories in total, for MarkerFileName. An empty startDirectory means the
// process working directory. Not finding the marker is reported through the
// boolean; only stat faults other than a missing marker are returned as errors.
func (locator *Locator) Locate(startDirectory string) (Root, bool, error) {
	currentDirectory, resolveError := resolveStartDirectory(startDirectory)
	if resolveError != nil {
		return Root{}, false, resolveError
	}

	for inspected := 0; inspected < MaxSearchDepth; inspected++ {
		markerPath := filepath.Join(currentDirectory, MarkerFileName)
		_, statError := locator.FileSystem.Stat(markerPath)
		switch {
		case statError == nil:
			locator.Logger.Debug("flake root located", zap.String("root", currentDirectory))
			return Root{Directory: currentDirectory, MarkerPath: markerPath}, true, nil
		case isMissingMarker(statError):
		default:
			return Root{}, false, fmt.Errorf(errorStatMarkerFormat, statError)
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	locator.Logger.Debug("flake root not found", zap.String("start", startDirectory))
	return Root{}, false, nil
}

// isMissingMarker reports stat errors meaning there is no marker at the path:
// it does not exist, a path component is a file, or it is a symlink loop.
func isMissingMarker(statError error) bool {
	return errors.Is(statError, fs.ErrNotExist) ||
		errors.Is(statError, syscall.ENOTDIR) ||
		errors.Is(statError, syscall.ELOOP)
}

func resolveStartDirectory(startDirectory string) (string, error) {
	if startDirectory == "" {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		return workingDirectory, nil
	}
	absolutePath, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, startDirectory, absoluteError)
	}
	return absolutePath, nil
}
