package output_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/output"
	"github.com/temirov/flakemap/internal/types"
)

var sampleRoot = flake.Root{Directory: "/etc/nixos", MarkerPath: "/etc/nixos/flake.nix"}

func sampleTree() *flake.TreeNode {
	files := []flake.IndexedFile{
		{AbsolutePath: "/etc/nixos/sub/b.nix", RelativePath: "sub/b.nix"},
		{AbsolutePath: "/etc/nixos/a.nix", RelativePath: "a.nix"},
		{AbsolutePath: "/etc/nixos/sub/deep/c.nix", RelativePath: "sub/deep/c.nix"},
	}
	return flake.NewTreeBuilder().Build(sampleRoot, files)
}

const rawTreeExpected = "/etc/nixos\n" +
	"├── a.nix\n" +
	"└── sub\n" +
	"    ├── b.nix\n" +
	"    └── deep\n" +
	"        └── c.nix\n" +
	"Summary: 3 files\n"

// TestWriteTreeRaw verifies box-drawing output including collapsed directories.
func TestWriteTreeRaw(testingInstance *testing.T) {
	var buffer bytes.Buffer
	output.WriteTreeRaw(&buffer, output.ConvertTree(sampleRoot, sampleTree()), true)
	if buffer.String() != rawTreeExpected {
		testingInstance.Fatalf("unexpected raw tree:\n%s\nwant:\n%s", buffer.String(), rawTreeExpected)
	}
}

// TestRenderJSON verifies the JSON structure of a converted tree.
func TestRenderJSON(testingInstance *testing.T) {
	rendered, renderError := output.RenderJSON(output.ConvertTree(sampleRoot, sampleTree()))
	if renderError != nil {
		testingInstance.Fatalf("RenderJSON error: %v", renderError)
	}
	var decoded types.TreeOutputNode
	if decodeError := json.Unmarshal([]byte(rendered), &decoded); decodeError != nil {
		testingInstance.Fatalf("decode: %v", decodeError)
	}
	if decoded.Type != types.NodeTypeDirectory || decoded.Path != "/etc/nixos" || decoded.TotalFiles != 3 {
		testingInstance.Fatalf("unexpected root %+v", decoded)
	}
	if len(decoded.Children) != 2 {
		testingInstance.Fatalf("expected 2 children, got %d", len(decoded.Children))
	}
	subdirectory := decoded.Children[1]
	if subdirectory.Path != "/etc/nixos/sub" || subdirectory.TotalFiles != 2 {
		testingInstance.Fatalf("unexpected sub directory %+v", subdirectory)
	}
	if decoded.Children[0].Type != types.NodeTypeFile || decoded.Children[0].Path != "/etc/nixos/a.nix" {
		testingInstance.Fatalf("unexpected file %+v", decoded.Children[0])
	}
}

// TestWriteListRaw verifies one path per line.
func TestWriteListRaw(testingInstance *testing.T) {
	var buffer bytes.Buffer
	output.WriteListRaw(&buffer, []flake.IndexedFile{{RelativePath: "a.nix"}, {RelativePath: "sub/b.nix"}})
	if buffer.String() != "a.nix\nsub/b.nix\n" {
		testingInstance.Fatalf("unexpected list %q", buffer.String())
	}
}

func TestRenderListJSON(testingInstance *testing.T) {
	rendered, renderError := output.RenderListJSON([]flake.IndexedFile{
		{AbsolutePath: "/etc/nixos/a.nix", RelativePath: "a.nix"},
		{AbsolutePath: "/etc/nixos/sub/b.nix", RelativePath: "sub/b.nix"},
	})
	if renderError != nil {
		testingInstance.Fatalf("RenderListJSON: %v", renderError)
	}
	var decoded []string
	if decodeError := json.Unmarshal([]byte(rendered), &decoded); decodeError != nil {
		testingInstance.Fatalf("decode: %v", decodeError)
	}
	if len(decoded) != 2 || decoded[0] != "a.nix" || decoded[1] != "sub/b.nix" {
		testingInstance.Fatalf("decoded list = %v", decoded)
	}

	empty, _ := output.RenderListJSON(nil)
	if empty != "[]" {
		testingInstance.Fatalf("empty list rendered as %q", empty)
	}
}
