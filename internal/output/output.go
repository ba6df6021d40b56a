// Package output renders a flake hierarchy without the interactive view.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	summaryFormat = "Summary: %d %s\n"
)

// ConvertTree converts a built tree into its serializable form. Paths are
// absolute, rooted at root.Directory.
func ConvertTree(root flake.Root, node *flake.TreeNode) *types.TreeOutputNode {
	if node == nil {
		return nil
	}
	outputNode := &types.TreeOutputNode{
		Path: root.Directory,
		Name: node.Label,
		Type: types.NodeTypeDirectory,
	}
	if node.File != nil {
		outputNode.Path = node.File.AbsolutePath
		outputNode.Type = types.NodeTypeFile
		return outputNode
	}
	if node.RelativePath != "" {
		outputNode.Path = filepath.Join(root.Directory, filepath.FromSlash(node.RelativePath))
	}
	for _, child := range node.Children {
		convertedChild := ConvertTree(root, child)
		outputNode.Children = append(outputNode.Children, convertedChild)
		if convertedChild.Type == types.NodeTypeFile {
			outputNode.TotalFiles++
		} else {
			outputNode.TotalFiles += convertedChild.TotalFiles
		}
	}
	return outputNode
}

// RenderJSON marshals a converted tree.
func RenderJSON(node *types.TreeOutputNode) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(node, indentPrefix, indentSpacer)
	if jsonEncodeError != nil {
		return "", fmt.Errorf("encoding tree: %w", jsonEncodeError)
	}
	return string(encoded), nil
}

// WriteTreeRaw renders a converted tree with box-drawing connectors.
func WriteTreeRaw(writer io.Writer, node *types.TreeOutputNode, includeSummary bool) {
	if node == nil {
		return
	}
	renderTreeNode(writer, node, "", true, true)
	if includeSummary {
		label := "files"
		if node.TotalFiles == 1 {
			label = "file"
		}
		fmt.Fprintf(writer, summaryFormat, node.TotalFiles, label)
	}
}

// RenderListJSON marshals the relative paths of files as a JSON array.
func RenderListJSON(files []flake.IndexedFile) (string, error) {
	relativePaths := make([]string, 0, len(files))
	for _, indexedFile := range files {
		relativePaths = append(relativePaths, indexedFile.RelativePath)
	}
	encoded, jsonEncodeError := json.MarshalIndent(relativePaths, indentPrefix, indentSpacer)
	if jsonEncodeError != nil {
		return "", fmt.Errorf("encoding list: %w", jsonEncodeError)
	}
	return string(encoded), nil
}

// WriteListRaw prints one relative path per line.
func WriteListRaw(writer io.Writer, files []flake.IndexedFile) {
	for _, indexedFile := range files {
		fmt.Fprintln(writer, indexedFile.RelativePath)
	}
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func renderTreeNode(writer io.Writer, node *types.TreeOutputNode, prefix string, isRoot bool, isLast bool) {
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	if isRoot {
		fmt.Fprintf(writer, "%s\n", node.Path)
	} else {
		fmt.Fprintf(writer, "%s%s\n", linePrefix, node.Name)
	}
	if node.Type == types.NodeTypeFile {
		return
	}
	for index, child := range node.Children {
		renderTreeNode(writer, child, childPrefix, false, index == len(node.Children)-1)
	}
}
