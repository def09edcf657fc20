package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/repository"
	"github.com/anuragpardeshii/MediCare/internal/search"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
)

// maxSearchQueryLength bounds doctor search text.
const maxSearchQueryLength = 100

// UserService serves the patient and doctor directory.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
	search doctorIndexer
}

// NewUserService creates a new user directory service.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// WithDoctorIndex routes doctor search through idx and keeps it updated on
// delete.
func (s *UserService) WithDoctorIndex(idx search.DoctorIndex) *UserService {
	s.search = doctorIndexer{index: idx, logger: s.logger}
	return s
}

// ListUsers returns one page of users, optionally of a single role.
func (s *UserService) ListUsers(ctx context.Context, role *domain.Role, page pagination.Params) ([]domain.User, int, error) {
	users, total, err := s.users.List(ctx, domain.UserFilter{
		Role:    role,
		Page:    page.Page,
		PerPage: page.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// ListDoctors returns one page of doctors.
func (s *UserService) ListDoctors(ctx context.Context, page pagination.Params) ([]domain.User, int, error) {
	role := domain.RoleDoctor
	return s.ListUsers(ctx, &role, page)
}

// SearchDoctors returns one page of doctors whose name or specialization
// matches query. The search index answers when configured; without one, or
// when it fails, the users table is matched with ILIKE instead.
func (s *UserService) SearchDoctors(ctx context.Context, query string, page pagination.Params) ([]domain.PublicUser, int, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > maxSearchQueryLength {
		return nil, 0, apperrors.Validation(fmt.Sprintf("Search text must be at most %d characters.", maxSearchQueryLength))
	}

	if s.search.index != nil && query != "" {
		doctors, total, err := s.search.index.Search(ctx, query, page)
		if err == nil {
			return doctors, total, nil
		}
		s.logger.WarnContext(ctx, "doctor search index unavailable, falling back to database",
			slog.String("error", err.Error()),
		)
	}

	role := domain.RoleDoctor
	users, total, err := s.users.List(ctx, domain.UserFilter{
		Role:    &role,
		Query:   query,
		Page:    page.Page,
		PerPage: page.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search doctors: %w", err)
	}
	return domain.PublicUsers(users), total, nil
}

// ReindexDoctors copies every doctor from the users table into the search
// index, a page at a time, and returns how many were indexed.
func (s *UserService) ReindexDoctors(ctx context.Context) (int, error) {
	if s.search.index == nil {
		return 0, nil
	}

	role := domain.RoleDoctor
	indexed := 0
	for page := 1; page <= pagination.MaxPage; page++ {
		users, total, err := s.users.List(ctx, domain.UserFilter{
			Role:    &role,
			Page:    page,
			PerPage: pagination.MaxPerPage,
		})
		if err != nil {
			return indexed, fmt.Errorf("reindex doctors: list page %d: %w", page, err)
		}
		if len(users) == 0 {
			break
		}
		if err := s.search.index.BulkIndex(ctx, domain.PublicUsers(users)); err != nil {
			return indexed, fmt.Errorf("reindex doctors: %w", err)
		}
		indexed += len(users)
		if indexed >= total {
			break
		}
	}

	s.logger.InfoContext(ctx, "doctor search index rebuilt", slog.Int("count", indexed))
	return indexed, nil
}

// ListPatients returns one page of patients.
func (s *UserService) ListPatients(ctx context.Context, page pagination.Params) ([]domain.User, int, error) {
	role := domain.RolePatient
	return s.ListUsers(ctx, &role, page)
}

// GetUser returns a single user. Doctors may read anyone; patients may read
// themselves and doctors.
func (s *UserService) GetUser(ctx context.Context, actor *auth.Identity, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if actor.Role.Allows(domain.RoleDoctor) || actor.UserID == id || user.Role == domain.RoleDoctor {
		return user, nil
	}
	return nil, apperrors.Forbidden("you can only view your own profile")
}

// DeleteUser removes a user and their appointments. Outstanding tokens for
// the user stop resolving to an identity once the row is gone.
func (s *UserService) DeleteUser(ctx context.Context, actor *auth.Identity, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.search.remove(ctx, id)

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", id),
		slog.String("deleted_by", actor.UserID),
	)
	return nil
}
