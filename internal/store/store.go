// Package store persists style profiles keyed by student id.
//
// Every backend stores the versioned document produced by the profile codec
// and supports a conditional save on a store-assigned revision.
package store

import (
	"context"
	"errors"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

var (
	// ErrNotFound is returned by Get when no profile exists for the id.
	ErrNotFound = errors.New("profile not found")

	// ErrRevisionConflict is returned by Save when the stored revision differs
	// from the expected one.
	ErrRevisionConflict = errors.New("profile revision conflict")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("profile store closed")
)

// Snapshot is a profile together with the revision it was read at.
type Snapshot struct {
	Profile  *profile.StyleProfile
	Revision int64
}

// ProfileStore is the persistence interface for style profiles.
type ProfileStore interface {
	// Get returns the stored profile or ErrNotFound.
	Get(ctx context.Context, studentID string) (*Snapshot, error)

	// Save writes p if the stored revision equals expectedRevision and returns
	// the new revision. An expectedRevision of 0 means the profile must not
	// exist yet.
	Save(ctx context.Context, studentID string, p *profile.StyleProfile, expectedRevision int64) (int64, error)

	// Delete removes the profile or returns ErrNotFound. A later Save with
	// expectedRevision 0 creates it again.
	Delete(ctx context.Context, studentID string) error

	// CreateDefault returns a new empty profile. It does not persist it.
	CreateDefault() *profile.StyleProfile

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// base provides CreateDefault for every backend.
type base struct{}

func (base) CreateDefault() *profile.StyleProfile {
	return profile.New()
}

func encode(p *profile.StyleProfile) ([]byte, error) {
	if p == nil {
		p = profile.New()
	}
	return profile.Marshal(p)
}
