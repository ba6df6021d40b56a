// Package session holds the interactive session state machine: it locates the
// flake on start, rebuilds the tree on refresh and reacts to selections. It
// has no terminal dependency; the tui package drives it one event at a time.
package session

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/services/clipboard"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo  Severity = "information"
	SeverityError Severity = "error"
)

const (
	flakeFoundFormat         = "Flake found: %s"
	flakeNotFoundFormat      = "Flake not found in %s. Specify a path"
	locateFailedFormat       = "Unable to search for flake: %v"
	indexedCountFormat       = "Found %d .nix files"
	refreshFailedFormat      = "Refresh failed: %v"
	selectedFormat           = "Selected %s"
	copiedFormat             = "Copied %s"
	copyFailedFormat         = "Copy failed: %v"
	workingDirectoryLabel    = "current directory"
	uninitializedRefreshText = "No flake root; nothing to refresh"
)

// Notification is a user-visible message.
type Notification struct {
	Severity Severity
	Message  string
}

// Event is one of RefreshEvent, SelectEvent, CopyEvent or QuitEvent.
type Event interface {
	isEvent()
}

// RefreshEvent re-indexes the root and replaces the tree.
type RefreshEvent struct{}

// SelectEvent activates a node.
type SelectEvent struct {
	Node *flake.TreeNode
}

// CopyEvent copies the absolute path of a file node to the clipboard.
type CopyEvent struct {
	Node *flake.TreeNode
}

// QuitEvent ends the session.
type QuitEvent struct{}

func (RefreshEvent) isEvent() {}
func (SelectEvent) isEvent() {}
func (CopyEvent) isEvent() {}
func (QuitEvent) isEvent() {}

// Result describes the observable effects of handling an event.
type Result struct {
	Notifications []Notification
	// TreeReplaced is set when Tree and Files now return a new snapshot.
	TreeReplaced bool
	Quit         bool
}

// Options configures a Session.
type Options struct {
	StartDirectory string
	Locator        *flake.Locator
	Indexer        *flake.Indexer
	Copier         clipboard.Copier
	Logger         *zap.Logger
}

// Session owns the current root and the indexed tree. Viewers keep their
// own display state and treat the tree as read-only.
type Session struct {
	startDirectory string
	locator        *flake.Locator
	indexer        *flake.Indexer
	treeBuilder    *flake.TreeBuilder
	copier         clipboard.Copier
	logger         *zap.Logger

	state flake.State
	tree  *flake.TreeNode
	files []flake.IndexedFile
}

// New constructs a Session in the Uninitialized state.
func New(options Options) *Session {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	copier := options.Copier
	if copier == nil {
		copier = clipboard.Disabled{}
	}
	return &Session{
		startDirectory: options.StartDirectory,
		locator:        options.Locator,
		indexer:        options.Indexer,
		treeBuilder:    flake.NewTreeBuilder(),
		copier:         copier,
		logger:         logger,
		state:          flake.Uninitialized{},
	}
}

// Start locates the root and performs the initial refresh. When no root is
// found the result asks the caller to quit.
func (session *Session) Start() Result {
	state, initializeError := flake.Initialize(session.locator, session.startDirectory)
	session.state = state
	session.tree = nil
	session.files = nil
	if initializeError != nil {
		session.logger.Error("locating flake failed", zap.Error(initializeError))
		return Result{
			Notifications: []Notification{errorNotification(fmt.Sprintf(locateFailedFormat, initializeError))},
			Quit:          true,
		}
	}

	located, isLocated := state.(flake.Located)
	if !isLocated {
		searchedDirectory := session.startDirectory
		if searchedDirectory == "" {
			searchedDirectory = workingDirectoryLabel
		}
		session.logger.Info("flake not found", zap.String("start", searchedDirectory))
		return Result{
			Notifications: []Notification{errorNotification(fmt.Sprintf(flakeNotFoundFormat, searchedDirectory))},
			Quit:          true,
		}
	}

	session.logger.Info("flake found", zap.String("marker", located.Root.MarkerPath))
	refreshResult := session.refresh()
	refreshResult.Notifications = append(
		[]Notification{infoNotification(fmt.Sprintf(flakeFoundFormat, located.Root.MarkerPath))},
		refreshResult.Notifications...,
	)
	return refreshResult
}

// Handle applies a single event.
func (session *Session) Handle(event Event) Result {
	switch typedEvent := event.(type) {
	case RefreshEvent:
		return session.refresh()
	case SelectEvent:
		return session.selectNode(typedEvent.Node)
	case CopyEvent:
		return session.copyNode(typedEvent.Node)
	case QuitEvent:
		return Result{Quit: true}
	default:
		return Result{}
	}
}

// Root returns the located root, if any.
func (session *Session) Root() (flake.Root, bool) {
	located, isLocated := session.state.(flake.Located)
	return located.Root, isLocated
}

// Tree returns the current tree, or nil before the first successful refresh.
// Each refresh returns a new tree with directories collapsed.
func (session *Session) Tree() *flake.TreeNode {
	return session.tree
}

// Files returns the indexed files of the current snapshot sorted by relative path.
func (session *Session) Files() []flake.IndexedFile {
	return session.files
}

// refresh indexes and rebuilds, swapping the snapshot only once both succeed.
func (session *Session) refresh() Result {
	if _, isLocated := session.state.(flake.Located); !isLocated {
		return Result{Notifications: []Notification{errorNotification(uninitializedRefreshText)}}
	}

	indexedFiles, indexError := session.indexer.Index(session.state)
	if indexError != nil {
		session.logger.Error("refresh failed", zap.Error(indexError))
		return Result{Notifications: []Notification{errorNotification(fmt.Sprintf(refreshFailedFormat, indexError))}}
	}

	root, _ := session.Root()
	sort.Slice(indexedFiles, func(leftIndex, rightIndex int) bool {
		return indexedFiles[leftIndex].RelativePath < indexedFiles[rightIndex].RelativePath
	})
	session.tree = session.treeBuilder.Build(root, indexedFiles)
	session.files = indexedFiles

	session.logger.Info("refreshed", zap.Int("files", len(indexedFiles)))
	return Result{
		Notifications: []Notification{infoNotification(fmt.Sprintf(indexedCountFormat, len(indexedFiles)))},
		TreeReplaced:  true,
	}
}

func (session *Session) selectNode(node *flake.TreeNode) Result {
	if node == nil || node.File == nil {
		return Result{}
	}
	return Result{Notifications: []Notification{infoNotification(fmt.Sprintf(selectedFormat, node.File.RelativePath))}}
}

func (session *Session) copyNode(node *flake.TreeNode) Result {
	if node == nil || node.File == nil {
		return Result{}
	}
	if copyError := session.copier.Copy(node.File.AbsolutePath); copyError != nil {
		if !errors.Is(copyError, clipboard.ErrUnavailable) {
			session.logger.Warn("clipboard copy failed", zap.Error(copyError))
		}
		return Result{Notifications: []Notification{errorNotification(fmt.Sprintf(copyFailedFormat, copyError))}}
	}
	return Result{Notifications: []Notification{infoNotification(fmt.Sprintf(copiedFormat, node.File.AbsolutePath))}}
}

func infoNotification(message string) Notification {
	return Notification{Severity: SeverityInfo, Message: message}
}

func errorNotification(message string) Notification {
	return Notification{Severity: SeverityError, Message: message}
}
