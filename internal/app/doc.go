// Package app contains the core application logic: configuration, logger
// construction, translating a loaded grid into live tasks, and the primary
// execution lifecycle, decoupled from any specific entrypoint.
package app
