// Package search keeps a free-text index of doctors, matched by name and
// specialization.
package search

import (
	"context"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
)

// DoctorIndex indexes and searches doctor profiles. Documents carry the
// public projection only, never the password hash.
type DoctorIndex interface {
	// Index adds or replaces one doctor.
	Index(ctx context.Context, doctor domain.PublicUser) error

	// Delete removes a document by user ID. Deleting an absent document is
	// not an error.
	Delete(ctx context.Context, id string) error

	// Search returns one page of doctors matching query, best match first,
	// and the total number of matches.
	Search(ctx context.Context, query string, page pagination.Params) ([]domain.PublicUser, int, error)

	// BulkIndex adds or replaces many doctors in one request.
	BulkIndex(ctx context.Context, doctors []domain.PublicUser) error
}
