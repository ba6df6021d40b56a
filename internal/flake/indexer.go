package flake

import (
	"fmt"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/flakemap/internal/utils"
)

const (
	errorRootUnreadableFormat = "%w: %s: %v"
	errorLoadIgnoreFormat     = "loading ignore patterns for %s: %w"
)

// Indexer enumerates .nix files beneath a located root.
type Indexer struct {
	FileSystem afero.Fs
	Logger     *zap.Logger
	// UseGitignore additionally excludes files matched by the root's .gitignore.
	UseGitignore bool
}

// NewIndexer constructs an Indexer reading from fileSystem.
func NewIndexer(fileSystem afero.Fs, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{FileSystem: fileSystem, Logger: logger}
}

// Index returns every file matching FilePattern beneath the located root whose
// relative path has no hidden segment. An Uninitialized state yields an empty
// result. Unreadable entries below the root are skipped; an unreadable root is
// reported as ErrRootUnreadable. The order of the result is unspecified.
func (indexer *Indexer) Index(state State) ([]IndexedFile, error) {
	switch typedState := state.(type) {
	case Located:
		return indexer.indexRoot(typedState.Root)
	default:
		return []IndexedFile{}, nil
	}
}

func (indexer *Indexer) indexRoot(root Root) ([]IndexedFile, error) {
	var ignoreMatcher *gitignore.GitIgnore
	if indexer.UseGitignore {
		matcher, compileError := compileRootIgnore(indexer.FileSystem, root)
		if compileError != nil {
			return nil, fmt.Errorf(errorLoadIgnoreFormat, root.Directory, compileError)
		}
		ignoreMatcher = matcher
	}

	walkRoot := indexer.resolveWalkRoot(root.Directory)
	indexedFiles := []IndexedFile{}
	walkError := afero.Walk(indexer.FileSystem, walkRoot, func(currentPath string, fileInfo os.FileInfo, entryError error) error {
		if currentPath == walkRoot {
			if entryError != nil {
				return fmt.Errorf(errorRootUnreadableFormat, ErrRootUnreadable, root.Directory, entryError)
			}
			return nil
		}
		if entryError != nil {
			indexer.Logger.Debug("skipping unreadable entry", zap.String("path", currentPath), zap.Error(entryError))
			if fileInfo != nil && fileInfo.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relativePath := utils.RelativePathOrSelf(currentPath, walkRoot)
		if utils.IsHiddenName(fileInfo.Name()) {
			if fileInfo.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fileInfo.IsDir() {
			return nil
		}
		if !matchesFilePattern(fileInfo.Name()) || utils.HasHiddenSegment(relativePath) {
			return nil
		}
		if ignoreMatcher != nil && ignoreMatcher.MatchesPath(relativePath) {
			return nil
		}

		indexedFiles = append(indexedFiles, IndexedFile{
			AbsolutePath: filepath.Join(root.Directory, filepath.FromSlash(relativePath)),
			RelativePath: relativePath,
		})
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	indexer.Logger.Debug("indexed flake", zap.String("root", root.Directory), zap.Int("files", len(indexedFiles)))
	return indexedFiles, nil
}

// resolveWalkRoot follows a symlinked root on the host filesystem, since the
// walk itself does not descend through symlinks.
func (indexer *Indexer) resolveWalkRoot(rootDirectory string) string {
	if _, isHostFileSystem := indexer.FileSystem.(*afero.OsFs); !isHostFileSystem {
		return rootDirectory
	}
	resolvedDirectory, resolveError := filepath.EvalSymlinks(rootDirectory)
	if resolveError != nil {
		return rootDirectory
	}
	return resolvedDirectory
}

func matchesFilePattern(name string) bool {
	isMatched, matchError := filepath.Match(FilePattern, name)
	return matchError == nil && isMatched
}
