// Package types defines the data structures shared across flakemap packages.
package types

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"

	ViewTree = "tree"
	ViewList = "list"

	FormatRaw  = "raw"
	FormatJSON = "json"
)

// TreeOutputNode is the serializable form of a hierarchy node used for non-interactive output.
type TreeOutputNode struct {
	Path       string            `json:"path"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Children   []*TreeOutputNode `json:"children,omitempty"`
	TotalFiles int               `json:"totalFiles,omitempty"`
}
