// Package models defines the domain types shared by the archive layers.
package models

import "time"

// DocumentMetadata is a lightweight representation of one .stf export,
// returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
