package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/event"
	"github.com/anuragpardeshii/MediCare/internal/repository"
	"github.com/anuragpardeshii/MediCare/internal/search"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	"github.com/anuragpardeshii/MediCare/pkg/validator"
)

const (
	minPasswordLength = 6
	maxNameLength     = 50
)

// Validation messages shown to the web client.
const (
	msgFieldsRequired      = "All fields are required!"
	msgPasswordTooShort    = "Password must be at least 6 characters long."
	msgPasswordTooLong     = "Password must be at most 72 bytes long."
	msgNameTooLong         = "Name cannot be more than 50 characters."
	msgInvalidEmail        = "Please add a valid email."
	msgInvalidRole         = "Role must be either patient or doctor."
	msgSpecializationReq   = "Specialization is required for doctors."
	msgCredentialsRequired = "Email and password are required!"
)

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Role           string
	Specialization string
}

// LoginInput holds the parameters for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// AuthService registers users, checks credentials and resolves sessions.
// It keeps no session state: a session is whatever a valid token says.
type AuthService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	events *event.Producer
	logger *slog.Logger
	search doctorIndexer

	// dummyHash is compared against when the email is unknown so a failed
	// lookup costs as much as a wrong password.
	dummyHash string
	now       func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	events *event.Producer,
	logger *slog.Logger,
) *AuthService {
	dummy, _ := hasher.Hash(uuid.NewString())
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		events:    events,
		logger:    logger,
		dummyHash: dummy,
		now:       time.Now,
	}
}

// WithDoctorIndex makes Register add new doctors to idx.
func (s *AuthService) WithDoctorIndex(idx search.DoctorIndex) *AuthService {
	s.search = doctorIndexer{index: idx, logger: s.logger}
	return s
}

// Register validates input, stores a new user with a hashed password and
// issues a session token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	user, err := s.newUser(input)
	if err != nil {
		authAttempts.WithLabelValues("register", outcomeInvalid).Inc()
		return nil, "", err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			authAttempts.WithLabelValues("register", outcomeInvalid).Inc()
			return nil, "", apperrors.Validation(msgPasswordTooLong)
		}
		authAttempts.WithLabelValues("register", outcomeError).Inc()
		return nil, "", err
	}
	user.PasswordHash = hash

	// Uniqueness is enforced by the store, never by a lookup here.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			authAttempts.WithLabelValues("register", outcomeConflict).Inc()
		} else {
			authAttempts.WithLabelValues("register", outcomeError).Inc()
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		authAttempts.WithLabelValues("register", outcomeError).Inc()
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.search.put(ctx, user)

	authAttempts.WithLabelValues("register", outcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)

	return user, token, nil
}

// newUser validates input and builds the user record without a hash.
func (s *AuthService) newUser(input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.Validation(msgFieldsRequired)
	}

	var msgs []string
	if utf8.RuneCountInString(name) > maxNameLength {
		msgs = append(msgs, msgNameTooLong)
	}
	if !validator.IsEmail(email) {
		msgs = append(msgs, msgInvalidEmail)
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		msgs = append(msgs, msgPasswordTooShort)
	} else if len(input.Password) > auth.MaxPasswordBytes {
		msgs = append(msgs, msgPasswordTooLong)
	}

	role, err := domain.ParseRole(strings.TrimSpace(input.Role))
	if err != nil {
		msgs = append(msgs, msgInvalidRole)
	}

	var specialization *string
	if role == domain.RoleDoctor {
		spec := strings.TrimSpace(input.Specialization)
		if spec == "" {
			msgs = append(msgs, msgSpecializationReq)
		} else {
			specialization = &spec
		}
	}

	if len(msgs) > 0 {
		return nil, apperrors.Validation(msgs...)
	}

	return &domain.User{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		Role:           role,
		Specialization: specialization,
		CreatedAt:      s.now().UTC(),
	}, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, string, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		authAttempts.WithLabelValues("login", outcomeInvalid).Inc()
		return nil, "", apperrors.Validation(msgCredentialsRequired)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.Verify(input.Password, s.dummyHash)
			authAttempts.WithLabelValues("login", outcomeBadPassword).Inc()
			return nil, "", apperrors.InvalidCredentials()
		}
		authAttempts.WithLabelValues("login", outcomeError).Inc()
		return nil, "", fmt.Errorf("get user by email: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		authAttempts.WithLabelValues("login", outcomeBadPassword).Inc()
		s.logger.InfoContext(ctx, "login rejected", slog.String("user_id", user.ID))
		return nil, "", apperrors.InvalidCredentials()
	}

	token, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		authAttempts.WithLabelValues("login", outcomeError).Inc()
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}

	authAttempts.WithLabelValues("login", outcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return user, token, nil
}

// ResolveSession returns the user a token belongs to. Absent, malformed,
// expired or forged tokens and deleted users all resolve to nil with no
// error; only a failed lookup is reported.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session for user %s: %w", id.UserID, err)
	}
	return user, nil
}
