package config

import "context"

// Loader abstracts the configuration format from the application. The HCL
// implementation lives in internal/hcl; tests substitute in-memory loaders.
type Loader interface {
	// Load reads the grid definition at path, which may be a single file
	// or a directory searched recursively, and returns the validated model.
	Load(ctx context.Context, path string) (*Grid, error)
}
