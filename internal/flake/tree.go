package flake

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/flakemap/internal/utils"
)

// NodeKind distinguishes directory nodes from file leaves.
type NodeKind int

const (
	NodeDirectory NodeKind = iota
	NodeFile
)

const relativePathSeparator = "/"

// TreeNode is a directory or file entry of the display hierarchy.
type TreeNode struct {
	Label string
	// RelativePath is the cumulative slash-separated path from the root; empty for the root itself.
	RelativePath string
	Kind         NodeKind
	Expanded     bool
	Children     []*TreeNode
	Parent       *TreeNode
	// File is set for file leaves only.
	File *IndexedFile
}

// IsDirectory reports whether the node is a directory node.
func (node *TreeNode) IsDirectory() bool {
	return node.Kind == NodeDirectory
}

// TreeBuilder converts a flat file listing into a display hierarchy.
type TreeBuilder struct {
	directoryNodes map[string]*TreeNode
}

// NewTreeBuilder constructs a TreeBuilder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

// Build returns a fresh tree for files under root. Files are sorted by relative
// path first, so the resulting shape does not depend on input order. The root
// node is expanded; every other directory starts collapsed.
func (treeBuilder *TreeBuilder) Build(root Root, files []IndexedFile) *TreeNode {
	sortedFiles := make([]IndexedFile, len(files))
	copy(sortedFiles, files)
	sort.Slice(sortedFiles, func(leftIndex, rightIndex int) bool {
		return sortedFiles[leftIndex].RelativePath < sortedFiles[rightIndex].RelativePath
	})

	rootNode := &TreeNode{
		Label:    filepath.Base(root.Directory),
		Kind:     NodeDirectory,
		Expanded: true,
	}
	treeBuilder.directoryNodes = map[string]*TreeNode{}

	for fileIndex := range sortedFiles {
		indexedFile := &sortedFiles[fileIndex]
		directorySegments, fileName := utils.SplitRelativePath(indexedFile.RelativePath)
		parentNode := treeBuilder.directoryNode(rootNode, directorySegments)
		parentNode.Children = append(parentNode.Children, &TreeNode{
			Label:        fileName,
			RelativePath: indexedFile.RelativePath,
			Kind:         NodeFile,
			Parent:       parentNode,
			File:         indexedFile,
		})
	}

	return rootNode
}

// directoryNode returns the node for the given directory segments, creating
// missing nodes keyed by their cumulative relative path.
func (treeBuilder *TreeBuilder) directoryNode(rootNode *TreeNode, directorySegments []string) *TreeNode {
	currentNode := rootNode
	for segmentIndex, segment := range directorySegments {
		cumulativePath := strings.Join(directorySegments[:segmentIndex+1], relativePathSeparator)
		cachedNode, exists := treeBuilder.directoryNodes[cumulativePath]
		if !exists {
			cachedNode = &TreeNode{
				Label:        segment,
				RelativePath: cumulativePath,
				Kind:         NodeDirectory,
				Parent:       currentNode,
			}
			currentNode.Children = append(currentNode.Children, cachedNode)
			treeBuilder.directoryNodes[cumulativePath] = cachedNode
		}
		currentNode = cachedNode
	}
	return currentNode
}

// VisibleRow is one rendered line of a tree.
type VisibleRow struct {
	Node  *TreeNode
	Depth int
}

// Flatten returns the rows visible given each directory's expanded state, root first.
func Flatten(rootNode *TreeNode) []VisibleRow {
	return FlattenWith(rootNode, func(node *TreeNode) bool { return node.Expanded })
}

// FlattenWith is Flatten with expansion decided by isExpanded, so a viewer can
// keep its own open/closed state without touching the nodes.
func FlattenWith(rootNode *TreeNode, isExpanded func(node *TreeNode) bool) []VisibleRow {
	if rootNode == nil {
		return nil
	}
	var rows []VisibleRow
	var visit func(node *TreeNode, depth int)
	visit = func(node *TreeNode, depth int) {
		rows = append(rows, VisibleRow{Node: node, Depth: depth})
		if !node.IsDirectory() || !isExpanded(node) {
			return
		}
		for _, child := range node.Children {
			visit(child, depth+1)
		}
	}
	visit(rootNode, 0)
	return rows
}

// Walk visits every node depth-first, parents before children.
func Walk(rootNode *TreeNode, visitor func(node *TreeNode)) {
	if rootNode == nil {
		return
	}
	visitor(rootNode)
	for _, child := range rootNode.Children {
		Walk(child, visitor)
	}
}

// Files returns the file leaves in display order.
func Files(rootNode *TreeNode) []*TreeNode {
	var fileNodes []*TreeNode
	Walk(rootNode, func(node *TreeNode) {
		if !node.IsDirectory() {
			fileNodes = append(fileNodes, node)
		}
	})
	return fileNodes
}

// Equal reports whether two trees have the same shape, labels, paths and expanded state.
func Equal(left *TreeNode, right *TreeNode) bool {
	if left == nil || right == nil {
		return left == right
	}
	if left.Label != right.Label || left.RelativePath != right.RelativePath || left.Kind != right.Kind || left.Expanded != right.Expanded {
		return false
	}
	if (left.File == nil) != (right.File == nil) {
		return false
	}
	if left.File != nil && *left.File != *right.File {
		return false
	}
	if len(left.Children) != len(right.Children) {
		return false
	}
	for childIndex := range left.Children {
		if !Equal(left.Children[childIndex], right.Children[childIndex]) {
			return false
		}
	}
	return true
}
