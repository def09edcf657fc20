package service

import (
	"context"
	"log/slog"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/search"
)

// doctorIndexer keeps the search index in step with the users table. A nil
// index is a no-op. Index failures are logged and never fail the request;
// the next startup reindex repairs drift.
type doctorIndexer struct {
	index  search.DoctorIndex
	logger *slog.Logger
}

func (d doctorIndexer) put(ctx context.Context, user *domain.User) {
	if d.index == nil || user.Role != domain.RoleDoctor {
		return
	}
	if err := d.index.Index(ctx, user.Public()); err != nil {
		d.logger.WarnContext(ctx, "failed to index doctor",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (d doctorIndexer) remove(ctx context.Context, id string) {
	if d.index == nil {
		return
	}
	if err := d.index.Delete(ctx, id); err != nil {
		d.logger.WarnContext(ctx, "failed to remove doctor from index",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}
}
