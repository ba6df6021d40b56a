package session_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/services/clipboard"
	"github.com/temirov/flakemap/internal/session"
)

const flakeDirectory = "/home/user/nixos"

type recordingCopier struct {
	copied    []string
	copyError error
}

func (copier *recordingCopier) Copy(text string) error {
	if copier.copyError != nil {
		return copier.copyError
	}
	copier.copied = append(copier.copied, text)
	return nil
}

func newScenarioFileSystem(testingHandle *testing.T) afero.Fs {
	testingHandle.Helper()
	fileSystem := afero.NewMemMapFs()
	for _, relativePath := range []string{"flake.nix", "a.nix", "sub/b.nix", ".hidden/c.nix", "sub/.cache/d.nix"} {
		absolutePath := filepath.Join(flakeDirectory, relativePath)
		if mkdirError := fileSystem.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
			testingHandle.Fatalf("mkdir: %v", mkdirError)
		}
		if writeError := afero.WriteFile(fileSystem, absolutePath, []byte("{}"), 0o644); writeError != nil {
			testingHandle.Fatalf("write: %v", writeError)
		}
	}
	return fileSystem
}

func newSession(fileSystem afero.Fs, startDirectory string, copier clipboard.Copier) *session.Session {
	return session.New(session.Options{
		StartDirectory: startDirectory,
		Locator:        flake.NewLocator(fileSystem, nil),
		Indexer:        flake.NewIndexer(fileSystem, nil),
		Copier:         copier,
	})
}

func findNode(rootNode *flake.TreeNode, relativePath string) *flake.TreeNode {
	var found *flake.TreeNode
	flake.Walk(rootNode, func(node *flake.TreeNode) {
		if node.RelativePath == relativePath {
			found = node
		}
	})
	return found
}

func TestStartLocatesAndRefreshes(testingHandle *testing.T) {
	activeSession := newSession(newScenarioFileSystem(testingHandle), filepath.Join(flakeDirectory, "sub"), nil)

	result := activeSession.Start()
	if result.Quit {
		testingHandle.Fatalf("unexpected quit: %+v", result)
	}
	if len(result.Notifications) != 2 {
		testingHandle.Fatalf("expected found and count notifications, got %+v", result.Notifications)
	}
	if result.Notifications[0].Severity != session.SeverityInfo || !strings.Contains(result.Notifications[0].Message, filepath.Join(flakeDirectory, "flake.nix")) {
		testingHandle.Fatalf("unexpected found notification %+v", result.Notifications[0])
	}
	if result.Notifications[1].Message != "Found 3 .nix files" {
		testingHandle.Fatalf("unexpected count notification %+v", result.Notifications[1])
	}
	if !result.TreeReplaced || activeSession.Tree() == nil {
		testingHandle.Fatalf("expected a tree after start")
	}
	root, located := activeSession.Root()
	if !located || root.Directory != flakeDirectory {
		testingHandle.Fatalf("unexpected root %+v", root)
	}
	files := activeSession.Files()
	if len(files) != 3 || files[0].RelativePath != "a.nix" || files[1].RelativePath != "flake.nix" || files[2].RelativePath != "sub/b.nix" {
		testingHandle.Fatalf("unexpected files %+v", files)
	}
}

func TestStartWithoutFlakeQuits(testingHandle *testing.T) {
	fileSystem := afero.NewMemMapFs()
	if mkdirError := fileSystem.MkdirAll("/tmp/empty", 0o755); mkdirError != nil {
		testingHandle.Fatalf("mkdir: %v", mkdirError)
	}
	activeSession := newSession(fileSystem, "/tmp/empty", nil)

	result := activeSession.Start()
	if !result.Quit {
		testingHandle.Fatalf("expected quit without a flake")
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Severity != session.SeverityError {
		testingHandle.Fatalf("expected one error notification, got %+v", result.Notifications)
	}
	if result.TreeReplaced || activeSession.Tree() != nil {
		testingHandle.Fatalf("no tree may be displayed without a flake")
	}

	refreshResult := activeSession.Handle(session.RefreshEvent{})
	if refreshResult.TreeReplaced || activeSession.Tree() != nil {
		testingHandle.Fatalf("refresh without a root must not build a tree")
	}
}

func TestRefreshTwiceIsIdempotent(testingHandle *testing.T) {
	activeSession := newSession(newScenarioFileSystem(testingHandle), flakeDirectory, nil)
	activeSession.Start()

	firstResult := activeSession.Handle(session.RefreshEvent{})
	firstTree := activeSession.Tree()
	secondResult := activeSession.Handle(session.RefreshEvent{})
	secondTree := activeSession.Tree()

	if firstResult.Notifications[0].Message != secondResult.Notifications[0].Message {
		testingHandle.Fatalf("counts differ: %q vs %q", firstResult.Notifications[0].Message, secondResult.Notifications[0].Message)
	}
	if firstTree == secondTree {
		testingHandle.Fatalf("refresh must replace the tree wholesale")
	}
	if !flake.Equal(firstTree, secondTree) {
		testingHandle.Fatalf("refresh produced structurally different trees")
	}
}

func TestRefreshFailureKeepsPreviousTree(testingHandle *testing.T) {
	fileSystem := newScenarioFileSystem(testingHandle)
	activeSession := newSession(fileSystem, flakeDirectory, nil)
	activeSession.Start()
	previousTree := activeSession.Tree()

	if removeError := fileSystem.RemoveAll(flakeDirectory); removeError != nil {
		testingHandle.Fatalf("remove: %v", removeError)
	}
	result := activeSession.Handle(session.RefreshEvent{})
	if result.Quit || result.TreeReplaced {
		testingHandle.Fatalf("failed refresh must neither quit nor replace the tree: %+v", result)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Severity != session.SeverityError {
		testingHandle.Fatalf("expected an error notification, got %+v", result.Notifications)
	}
	if activeSession.Tree() != previousTree {
		testingHandle.Fatalf("previous tree must stay displayed")
	}
	if quitResult := activeSession.Handle(session.QuitEvent{}); !quitResult.Quit {
		testingHandle.Fatalf("session must remain able to quit")
	}
}

func TestSelectFileAndDirectory(testingHandle *testing.T) {
	activeSession := newSession(newScenarioFileSystem(testingHandle), flakeDirectory, nil)
	activeSession.Start()

	fileResult := activeSession.Handle(session.SelectEvent{Node: findNode(activeSession.Tree(), "sub/b.nix")})
	if len(fileResult.Notifications) != 1 || fileResult.Notifications[0].Message != "Selected sub/b.nix" {
		testingHandle.Fatalf("unexpected selection result %+v", fileResult)
	}

	directoryResult := activeSession.Handle(session.SelectEvent{Node: findNode(activeSession.Tree(), "sub")})
	if len(directoryResult.Notifications) != 0 || directoryResult.TreeReplaced || directoryResult.Quit {
		testingHandle.Fatalf("selecting a directory must be a no-op, got %+v", directoryResult)
	}
}

func TestCopyUsesClipboard(testingHandle *testing.T) {
	copier := &recordingCopier{}
	activeSession := newSession(newScenarioFileSystem(testingHandle), flakeDirectory, copier)
	activeSession.Start()

	result := activeSession.Handle(session.CopyEvent{Node: findNode(activeSession.Tree(), "a.nix")})
	expectedPath := filepath.Join(flakeDirectory, "a.nix")
	if len(copier.copied) != 1 || copier.copied[0] != expectedPath {
		testingHandle.Fatalf("unexpected clipboard writes %v", copier.copied)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Severity != session.SeverityInfo {
		testingHandle.Fatalf("unexpected copy result %+v", result)
	}

	copier.copyError = errors.New("no display")
	result = activeSession.Handle(session.CopyEvent{Node: findNode(activeSession.Tree(), "a.nix")})
	if len(result.Notifications) != 1 || result.Notifications[0].Severity != session.SeverityError {
		testingHandle.Fatalf("expected copy failure notification, got %+v", result)
	}
}

func TestCopyWithoutClipboardReportsUnavailable(testingHandle *testing.T) {
	activeSession := newSession(newScenarioFileSystem(testingHandle), flakeDirectory, nil)
	activeSession.Start()

	result := activeSession.Handle(session.CopyEvent{Node: findNode(activeSession.Tree(), "a.nix")})
	if len(result.Notifications) != 1 || !strings.Contains(result.Notifications[0].Message, clipboard.ErrUnavailable.Error()) {
		testingHandle.Fatalf("expected unavailable notification, got %+v", result)
	}
}
