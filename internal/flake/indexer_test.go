package flake_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/flakemap/internal/flake"
)

var scenarioFiles = []string{
	flake.MarkerFileName,
	"a.nix",
	"sub/b.nix",
	".hidden/c.nix",
	"sub/.cache/d.nix",
	"README.md",
	"sub/notes.txt",
}

func createScenario(testingHandle *testing.T, fileSystem afero.Fs, rootDirectory string, relativePaths []string) {
	testingHandle.Helper()
	for _, relativePath := range relativePaths {
		writeMemoryFile(testingHandle, fileSystem, filepath.Join(rootDirectory, filepath.FromSlash(relativePath)))
	}
}

func relativePaths(indexedFiles []flake.IndexedFile) []string {
	paths := make([]string, 0, len(indexedFiles))
	for _, indexedFile := range indexedFiles {
		paths = append(paths, indexedFile.RelativePath)
	}
	sort.Strings(paths)
	return paths
}

func TestIndexExcludesHiddenSegmentsAndOtherExtensions(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	fileSystem := afero.NewOsFs()
	createScenario(testingHandle, fileSystem, rootDirectory, scenarioFiles)
	state := flake.Located{Root: flake.Root{Directory: rootDirectory, MarkerPath: filepath.Join(rootDirectory, flake.MarkerFileName)}}

	indexedFiles, indexError := flake.NewIndexer(fileSystem, nil).Index(state)
	if indexError != nil {
		testingHandle.Fatalf("Index error: %v", indexError)
	}

	actualPaths := relativePaths(indexedFiles)
	expectedPaths := []string{"a.nix", "flake.nix", "sub/b.nix"}
	if len(actualPaths) != len(expectedPaths) {
		testingHandle.Fatalf("indexed %v, want %v", actualPaths, expectedPaths)
	}
	for pathIndex := range expectedPaths {
		if actualPaths[pathIndex] != expectedPaths[pathIndex] {
			testingHandle.Fatalf("indexed %v, want %v", actualPaths, expectedPaths)
		}
	}
	for _, indexedFile := range indexedFiles {
		expectedAbsolute := filepath.Join(rootDirectory, filepath.FromSlash(indexedFile.RelativePath))
		if indexedFile.AbsolutePath != expectedAbsolute {
			testingHandle.Fatalf("absolute path %s, want %s", indexedFile.AbsolutePath, expectedAbsolute)
		}
	}
}

func TestIndexUninitializedIsEmpty(testingHandle *testing.T) {
	indexedFiles, indexError := flake.NewIndexer(afero.NewMemMapFs(), nil).Index(flake.Uninitialized{})
	if indexError != nil {
		testingHandle.Fatalf("expected no error, got %v", indexError)
	}
	if indexedFiles == nil || len(indexedFiles) != 0 {
		testingHandle.Fatalf("expected empty slice, got %#v", indexedFiles)
	}

	indexedFiles, indexError = flake.NewIndexer(afero.NewMemMapFs(), nil).Index(nil)
	if indexError != nil || len(indexedFiles) != 0 {
		testingHandle.Fatalf("expected empty result for nil state, got %v %v", indexedFiles, indexError)
	}
}

func TestIndexMissingRootIsUnreadable(testingHandle *testing.T) {
	state := flake.Located{Root: flake.Root{Directory: "/gone", MarkerPath: "/gone/flake.nix"}}

	_, indexError := flake.NewIndexer(afero.NewMemMapFs(), nil).Index(state)
	if !errors.Is(indexError, flake.ErrRootUnreadable) {
		testingHandle.Fatalf("expected ErrRootUnreadable, got %v", indexError)
	}
}

// lockedFileSystem fails to open the directories listed in locked.
type lockedFileSystem struct {
	afero.Fs
	locked map[string]bool
}

func (fileSystem *lockedFileSystem) Open(name string) (afero.File, error) {
	if fileSystem.locked[filepath.Clean(name)] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return fileSystem.Fs.Open(name)
}

func TestIndexSkipsUnreadableSubdirectory(testingHandle *testing.T) {
	memoryFileSystem := afero.NewMemMapFs()
	createScenario(testingHandle, memoryFileSystem, "/flake", []string{flake.MarkerFileName, "open/a.nix", "locked/b.nix", "z.nix"})
	fileSystem := &lockedFileSystem{Fs: memoryFileSystem, locked: map[string]bool{"/flake/locked": true}}
	state := flake.Located{Root: flake.Root{Directory: "/flake", MarkerPath: "/flake/flake.nix"}}

	indexedFiles, indexError := flake.NewIndexer(fileSystem, nil).Index(state)
	if indexError != nil {
		testingHandle.Fatalf("Index error: %v", indexError)
	}
	actualPaths := relativePaths(indexedFiles)
	expectedPaths := []string{"flake.nix", "open/a.nix", "z.nix"}
	if len(actualPaths) != len(expectedPaths) {
		testingHandle.Fatalf("unexpected paths %v, want %v", actualPaths, expectedPaths)
	}
	for pathIndex := range expectedPaths {
		if actualPaths[pathIndex] != expectedPaths[pathIndex] {
			testingHandle.Fatalf("unexpected paths %v, want %v", actualPaths, expectedPaths)
		}
	}
}

func TestIndexUnreadableRootFails(testingHandle *testing.T) {
	memoryFileSystem := afero.NewMemMapFs()
	createScenario(testingHandle, memoryFileSystem, "/flake", []string{flake.MarkerFileName, "a.nix"})
	fileSystem := &lockedFileSystem{Fs: memoryFileSystem, locked: map[string]bool{"/flake": true}}
	state := flake.Located{Root: flake.Root{Directory: "/flake", MarkerPath: "/flake/flake.nix"}}

	_, indexError := flake.NewIndexer(fileSystem, nil).Index(state)
	if !errors.Is(indexError, flake.ErrRootUnreadable) {
		testingHandle.Fatalf("expected ErrRootUnreadable, got %v", indexError)
	}
}

func TestIndexHonorsGitignoreWhenEnabled(testingHandle *testing.T) {
	fileSystem := afero.NewMemMapFs()
	createScenario(testingHandle, fileSystem, "/flake", []string{flake.MarkerFileName, "generated.nix", "hosts/laptop.nix"})
	if writeError := afero.WriteFile(fileSystem, "/flake/.gitignore", []byte("# build outputs\n\ngenerated.nix\n"), 0o644); writeError != nil {
		testingHandle.Fatalf("write gitignore: %v", writeError)
	}
	state := flake.Located{Root: flake.Root{Directory: "/flake"}}

	indexer := flake.NewIndexer(fileSystem, nil)
	indexedFiles, indexError := indexer.Index(state)
	if indexError != nil {
		testingHandle.Fatalf("Index error: %v", indexError)
	}
	if len(indexedFiles) != 3 {
		testingHandle.Fatalf("expected gitignore to be ignored by default, got %v", relativePaths(indexedFiles))
	}

	indexer.UseGitignore = true
	indexedFiles, indexError = indexer.Index(state)
	if indexError != nil {
		testingHandle.Fatalf("Index error: %v", indexError)
	}
	actualPaths := relativePaths(indexedFiles)
	if len(actualPaths) != 2 || actualPaths[0] != "flake.nix" || actualPaths[1] != "hosts/laptop.nix" {
		testingHandle.Fatalf("unexpected paths with gitignore %v", actualPaths)
	}
}

func TestIndexRootUnderHiddenDirectory(testingHandle *testing.T) {
	fileSystem := afero.NewMemMapFs()
	createScenario(testingHandle, fileSystem, "/home/user/.config/nixos", []string{flake.MarkerFileName, "home.nix"})
	state := flake.Located{Root: flake.Root{Directory: "/home/user/.config/nixos"}}

	indexedFiles, indexError := flake.NewIndexer(fileSystem, nil).Index(state)
	if indexError != nil {
		testingHandle.Fatalf("Index error: %v", indexError)
	}
	if len(indexedFiles) != 2 {
		testingHandle.Fatalf("expected files under hidden ancestor to be indexed, got %v", relativePaths(indexedFiles))
	}
}
