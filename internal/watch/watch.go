// Package watch reports filesystem changes below a flake root that affect the index.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/utils"
)

// DefaultDebounce coalesces bursts of events, such as an editor's save sequence.
const DefaultDebounce = 250 * time.Millisecond

const (
	errorCreateWatcherFormat   = "creating watcher: %w"
	errorWatchDirectoryFormat  = "watching %s: %w"
	errorListDirectoriesFormat = "listing directories under %s: %w"
)

// Watcher watches a root and its non-hidden subdirectories.
type Watcher struct {
	// watchRoot is the root directory with symlinks resolved; event names are reported below it.
	watchRoot string
	fsWatcher *fsnotify.Watcher
	logger    *zap.Logger
	debounce  time.Duration
}

// New starts watching root. The caller must Close the watcher.
func New(root flake.Root, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watchRoot := root.Directory
	if resolvedDirectory, resolveError := filepath.EvalSymlinks(root.Directory); resolveError == nil {
		watchRoot = resolvedDirectory
	}
	directories, listError := watchedDirectories(afero.NewOsFs(), watchRoot)
	if listError != nil {
		return nil, fmt.Errorf(errorListDirectoriesFormat, root.Directory, listError)
	}
	fsWatcher, createError := fsnotify.NewWatcher()
	if createError != nil {
		return nil, fmt.Errorf(errorCreateWatcherFormat, createError)
	}
	watcher := &Watcher{watchRoot: watchRoot, fsWatcher: fsWatcher, logger: logger, debounce: debounce}
	for _, directory := range directories {
		if addError := fsWatcher.Add(directory); addError != nil {
			if directory == watchRoot {
				_ = fsWatcher.Close()
				return nil, fmt.Errorf(errorWatchDirectoryFormat, directory, addError)
			}
			logger.Debug("skipping unwatchable directory", zap.String("path", directory), zap.Error(addError))
		}
	}
	return watcher, nil
}

// Run delivers one notify call per debounced burst of relevant changes until
// ctx is done or the watcher is closed.
func (watcher *Watcher) Run(ctx context.Context, notify func()) error {
	var debounceTimer *time.Timer
	var debounceChannel <-chan time.Time
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-watcher.fsWatcher.Events:
			if !open {
				return nil
			}
			if !watcher.handleEvent(event) {
				continue
			}
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(watcher.debounce)
			} else {
				debounceTimer.Reset(watcher.debounce)
			}
			debounceChannel = debounceTimer.C
		case watchError, open := <-watcher.fsWatcher.Errors:
			if !open {
				return nil
			}
			watcher.logger.Warn("watch error", zap.Error(watchError))
		case <-debounceChannel:
			debounceChannel = nil
			notify()
		}
	}
}

// Close stops watching.
func (watcher *Watcher) Close() error {
	return watcher.fsWatcher.Close()
}

// handleEvent reports whether event may change the index, adding watches for new directories.
func (watcher *Watcher) handleEvent(event fsnotify.Event) bool {
	relativePath := utils.RelativePathOrSelf(event.Name, watcher.watchRoot)
	if utils.HasHiddenSegment(relativePath) {
		return false
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	if event.Has(fsnotify.Create) {
		if fileInfo, statError := os.Stat(event.Name); statError == nil && fileInfo.IsDir() {
			if addError := watcher.fsWatcher.Add(event.Name); addError != nil {
				watcher.logger.Debug("skipping new directory", zap.String("path", event.Name), zap.Error(addError))
			}
			return true
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	return filepath.Ext(event.Name) == flake.FileExtension
}

// watchedDirectories lists rootDirectory and every non-hidden directory below it.
func watchedDirectories(fileSystem afero.Fs, rootDirectory string) ([]string, error) {
	var directories []string
	walkError := afero.Walk(fileSystem, rootDirectory, func(currentPath string, fileInfo os.FileInfo, entryError error) error {
		if entryError != nil {
			if currentPath == rootDirectory {
				return entryError
			}
			if fileInfo != nil && fileInfo.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !fileInfo.IsDir() {
			return nil
		}
		if currentPath != rootDirectory && utils.IsHiddenName(fileInfo.Name()) {
			return filepath.SkipDir
		}
		directories = append(directories, currentPath)
		return nil
	})
	if walkError != nil && !errors.Is(walkError, filepath.SkipDir) {
		return nil, walkError
	}
	return directories, nil
}
