// Package store is the durable key/bytes record store with hierarchical
// prefix listing. Keys are '/'-delimited paths.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	Delimiter = "/"

	ContentTypeJSON = "application/json"
	ContentTypePDF  = "application/pdf"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned by Put when the key was already written.
	ErrExists = errors.New("blob already exists")
)

// Store is implemented by every backend.
type Store interface {
	// Put writes data under key, tagged with contentType. Artifacts are
	// append-only: backends that can detect an existing key return ErrExists
	// and leave the stored bytes untouched.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the bytes at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the immediate children of prefix in lexicographic order.
	// Nested children are returned as prefixes ending in Delimiter, leaves
	// as full keys.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PutJSON writes v with two-space indentation.
func PutJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, data, ContentTypeJSON)
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// ChildPrefixes collapses a flat set of keys into the immediate children of
// prefix. Backends without native delimiter listing share it.
func ChildPrefixes(keys []string, prefix string) []string {
	seen := make(map[string]struct{})
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}
		rest := key[len(prefix):]
		child := key
		if idx := strings.Index(rest, Delimiter); idx >= 0 {
			child = prefix + rest[:idx+1]
		}
		seen[child] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for child := range seen {
		out = append(out, child)
	}
	sort.Strings(out)
	return out
}
