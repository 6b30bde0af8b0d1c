// Package config holds the format-agnostic model of a grid file: the ordered
// task and join blocks that describe a dependency graph to run.
package config

import "fmt"

// BlockKind distinguishes the two block types a grid file may contain.
type BlockKind int

const (
	// TaskBlock declares a runnable task with at most one predecessor.
	TaskBlock BlockKind = iota
	// JoinBlock declares a when-all join over several predecessors.
	JoinBlock
)

// Block is one declaration from a grid file. Which fields are meaningful
// depends on Kind.
type Block struct {
	Kind BlockKind
	Name string

	// Task fields.
	Message string // logged each time the task runs; may be empty
	Repeat  int    // number of times the task respawns after its first run
	After   string // name of the single predecessor block; empty for roots

	// Join field.
	Of []string // names of the predecessor blocks, in declaration order
}

// Grid is the decoded content of one grid path, with blocks in declaration
// order across files.
type Grid struct {
	Blocks []*Block
}

// Validate checks the cross-block rules the loader cannot check per block:
// names are unique, every reference names an earlier block (which also rules
// out self-references and cycles), joins have at least one predecessor, and
// repeat counts are non-negative.
func (g *Grid) Validate() error {
	seen := make(map[string]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		if seen[b.Name] {
			return fmt.Errorf("duplicate block name %q", b.Name)
		}

		switch b.Kind {
		case TaskBlock:
			if b.Repeat < 0 {
				return fmt.Errorf("task %q: repeat must not be negative", b.Name)
			}
			if b.After != "" && !seen[b.After] {
				return fmt.Errorf("task %q: after refers to %q, which is not declared earlier", b.Name, b.After)
			}
		case JoinBlock:
			if len(b.Of) == 0 {
				return fmt.Errorf("join %q: of must list at least one block", b.Name)
			}
			for _, ref := range b.Of {
				if !seen[ref] {
					return fmt.Errorf("join %q: of refers to %q, which is not declared earlier", b.Name, ref)
				}
			}
		}

		seen[b.Name] = true
	}
	return nil
}
