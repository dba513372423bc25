// Package storage defines the archive file-system abstraction. The archive
// is a directory tree of .stf exports; the converter only ever reads them.
package storage

import "github.com/taviso/stfjson/internal/models"

// Provider is the interface for archive file operations.
type Provider interface {
	// List returns metadata for every .stf file under dir (relative to the
	// archive root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the
	// archive root).
	Read(path string) ([]byte, error)
}
