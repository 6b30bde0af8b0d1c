// Package hcl is the HCL implementation of config.Loader: it parses grid
// files into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/taskgridgo/internal/config"
	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/fsutil"
)

// Loader parses .hcl grid files. It is stateless and safe for reuse.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// gridSchema describes the block types a grid file may contain. Using an
// explicit body schema, rather than decoding whole structs, keeps the blocks
// in declaration order, which the model's earlier-reference rule depends on.
var gridSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
		{Type: "join", LabelNames: []string{"name"}},
	},
}

var taskSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "message"},
		{Name: "repeat"},
		{Name: "after"},
	},
}

var joinSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "of", Required: true},
	},
}

// Load implements config.Loader. path may be a single .hcl file or a
// directory searched recursively; multi-file grids are concatenated in
// lexical file order before validation.
func (l *Loader) Load(ctx context.Context, path string) (*config.Grid, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open grid path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find grid files in %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no .hcl grid files found in %s", path)
		}
	}

	parser := hclparse.NewParser()
	grid := &config.Grid{}
	for _, file := range files {
		blocks, err := parseGridFile(parser, file)
		if err != nil {
			return nil, err
		}
		grid.Blocks = append(grid.Blocks, blocks...)
	}

	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}

	logger.Debug("Grid loaded.", "files", len(files), "blocks", len(grid.Blocks))
	return grid, nil
}

func parseGridFile(parser *hclparse.Parser, path string) ([]*config.Block, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}

	content, diags := hclFile.Body.Content(gridSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid grid file %s: %w", path, diags)
	}

	blocks := make([]*config.Block, 0, len(content.Blocks))
	for _, blk := range content.Blocks {
		var (
			b   *config.Block
			err error
		)
		switch blk.Type {
		case "task":
			b, err = decodeTask(blk)
		case "join":
			b, err = decodeJoin(blk)
		}
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", path, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func decodeTask(blk *hcl.Block) (*config.Block, error) {
	content, diags := blk.Body.Content(taskSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("task %q: %w", blk.Labels[0], diags)
	}

	b := &config.Block{Kind: config.TaskBlock, Name: blk.Labels[0]}
	if attr, ok := content.Attributes["message"]; ok {
		if err := decodeString(attr, &b.Message); err != nil {
			return nil, fmt.Errorf("task %q: %w", b.Name, err)
		}
	}
	if attr, ok := content.Attributes["repeat"]; ok {
		if err := decodeInt(attr, &b.Repeat); err != nil {
			return nil, fmt.Errorf("task %q: %w", b.Name, err)
		}
	}
	if attr, ok := content.Attributes["after"]; ok {
		if err := decodeString(attr, &b.After); err != nil {
			return nil, fmt.Errorf("task %q: %w", b.Name, err)
		}
	}
	return b, nil
}

func decodeJoin(blk *hcl.Block) (*config.Block, error) {
	content, diags := blk.Body.Content(joinSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("join %q: %w", blk.Labels[0], diags)
	}

	b := &config.Block{Kind: config.JoinBlock, Name: blk.Labels[0]}
	val, diags := content.Attributes["of"].Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("join %q: of: %w", b.Name, diags)
	}
	val, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("join %q: of must be a list of strings: %w", b.Name, err)
	}
	for _, elem := range val.AsValueSlice() {
		if elem.IsNull() {
			return nil, fmt.Errorf("join %q: of contains a null element", b.Name)
		}
		b.Of = append(b.Of, elem.AsString())
	}
	return b, nil
}

// decodeString evaluates attr and stores it into dst as a string, applying
// cty's standard conversions (so e.g. numbers stringify).
func decodeString(attr *hcl.Attribute, dst *string) error {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", attr.Name, diags)
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return fmt.Errorf("%s must be a string: %w", attr.Name, err)
	}
	if val.IsNull() {
		return fmt.Errorf("%s must not be null", attr.Name)
	}
	*dst = val.AsString()
	return nil
}

func decodeInt(attr *hcl.Attribute, dst *int) error {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", attr.Name, diags)
	}
	val, err := convert.Convert(val, cty.Number)
	if err != nil {
		return fmt.Errorf("%s must be a number: %w", attr.Name, err)
	}
	if val.IsNull() {
		return fmt.Errorf("%s must not be null", attr.Name)
	}
	if err := gocty.FromCtyValue(val, dst); err != nil {
		return fmt.Errorf("%s must be a whole number: %w", attr.Name, err)
	}
	return nil
}
