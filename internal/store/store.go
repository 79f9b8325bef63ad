// Package store defines the SlotStore interface for persisting level sets
// in named save slots.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nvandessel/pneumatic/internal/document"
)

// Slot is a saved level set document.
type Slot struct {
	Name        string       `json:"name"`
	Doc         document.Doc `json:"doc"`
	ContentHash string       `json:"content_hash"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// SlotInfo describes a slot without its document.
type SlotInfo struct {
	Name        string    `json:"name"`
	ContentHash string    `json:"content_hash"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SlotStore persists level set documents by slot name.
type SlotStore interface {
	// Save stores doc under name, replacing any previous document and
	// keeping the slot's creation time.
	Save(ctx context.Context, name string, doc document.Doc) error

	// Load returns the slot called name. Returns nil if not found.
	Load(ctx context.Context, name string) (*Slot, error)

	// List returns every slot ordered by name.
	List(ctx context.Context) ([]SlotInfo, error)

	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, name string) error

	Close() error
}

// MaxNameLength bounds slot names.
const MaxNameLength = 64

// ValidateName checks that name is usable as a slot name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("slot name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("slot name longer than %d characters", MaxNameLength)
	}
	if strings.ContainsAny(name, " \t\r\n/\\") {
		return fmt.Errorf("invalid slot name %q: no whitespace or slashes", name)
	}
	return nil
}

// encode returns the canonical JSON of doc and its sha256 hex digest.
func encode(doc document.Doc) ([]byte, string, error) {
	if doc == nil {
		return nil, "", fmt.Errorf("document is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal document: %w", err)
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}

func decode(data []byte) (document.Doc, error) {
	var doc document.Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}
