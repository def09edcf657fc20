package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/event"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
)

const testSecret = "service-test-secret-that-is-long-enough"

type authFixture struct {
	svc    *AuthService
	repo   *mockUserRepository
	pub    *recordingPublisher
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := &mockUserRepository{}
	pub := &recordingPublisher{}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	return &authFixture{
		svc:    NewAuthService(repo, hasher, tokens, newTestEvents(pub), newTestLogger()),
		repo:   repo,
		pub:    pub,
		hasher: hasher,
		tokens: tokens,
	}
}

func validationMessages(t *testing.T, err error) []string {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	return appErr.Details
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_PatientSuccess(t *testing.T) {
	f := newAuthFixture(t)

	var stored *domain.User
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.User) }).
		Return(nil)

	user, token, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "A",
		Email:    "a@x.com",
		Password: "secret1",
		Role:     "patient",
		// Ignored for patients.
		Specialization: "cardiology",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, domain.RolePatient, user.Role)
	assert.Nil(t, user.Specialization)
	assert.Same(t, stored, user)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("secret1", stored.PasswordHash))

	id, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, domain.RolePatient, id.Role)

	assert.Equal(t, []string{event.TopicUserRegistered}, f.pub.published())
	f.repo.AssertExpectations(t)
}

func TestRegister_DefaultRoleIsPatient(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, _, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "B", Email: "b@x.com", Password: "secret1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, user.Role)
}

func TestRegister_DoctorKeepsSpecialization(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, _, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Dr. C", Email: "c@x.com", Password: "secret1", Role: "doctor", Specialization: " pediatrics ",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, user.Role)
	require.NotNil(t, user.Specialization)
	assert.Equal(t, "pediatrics", *user.Specialization)
	assert.True(t, user.HasConsistentSpecialization())
}

func TestRegister_RoleSpecializationInvariant(t *testing.T) {
	inputs := []RegisterInput{
		{Name: "P1", Email: "p1@x.com", Password: "secret1"},
		{Name: "P2", Email: "p2@x.com", Password: "secret1", Role: "patient", Specialization: "surgery"},
		{Name: "D1", Email: "d1@x.com", Password: "secret1", Role: "doctor", Specialization: "oncology"},
	}

	for _, in := range inputs {
		t.Run(in.Name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

			user, _, err := f.svc.Register(context.Background(), in)
			require.NoError(t, err)
			assert.True(t, user.HasConsistentSpecialization())
		})
	}
}

func TestRegister_DoctorWithoutSpecialization(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Dr. D", Email: "d@x.com", Password: "secret1", Role: "doctor",
	})

	assert.Equal(t, []string{msgSpecializationReq}, validationMessages(t, err))
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_MissingFields(t *testing.T) {
	cases := []RegisterInput{
		{Email: "a@x.com", Password: "secret1"},
		{Name: "A", Password: "secret1"},
		{Name: "A", Email: "a@x.com"},
		{Name: "   ", Email: "a@x.com", Password: "secret1"},
	}
	for i, in := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			f := newAuthFixture(t)
			_, _, err := f.svc.Register(context.Background(), in)
			assert.Equal(t, []string{msgFieldsRequired}, validationMessages(t, err))
			assert.Equal(t, 400, apperrors.HTTPStatus(err))
		})
	}
}

func TestRegister_CollectsAllValidationMessages(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     strings.Repeat("n", 51),
		Email:    "not-an-email",
		Password: "12345",
		Role:     "admin",
	})

	assert.Equal(t, []string{msgNameTooLong, msgInvalidEmail, msgPasswordTooShort, msgInvalidRole},
		validationMessages(t, err))
}

func TestRegister_PasswordBoundaries(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, _, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "123456"})
	require.NoError(t, err)

	_, _, err = f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: strings.Repeat("p", 73)})
	assert.Equal(t, []string{msgPasswordTooLong}, validationMessages(t, err))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("user", "email", "a@x.com")).Once()

	in := RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"}
	_, _, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)

	user, token, err := f.svc.Register(context.Background(), in)
	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.Equal(t, []string{event.TopicUserRegistered}, f.pub.published())
}

func TestRegister_StorageError(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, _, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})

	require.Error(t, err)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}

func TestRegister_EventFailureDoesNotFail(t *testing.T) {
	f := newAuthFixture(t)
	f.pub.err = errors.New("broker down")
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, token, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.NotNil(t, user)
	assert.NotEmpty(t, token)
}

// ============================================================================
// Login
// ============================================================================

func storedUser(t *testing.T, f *authFixture, password string) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &domain.User{
		ID:           "user-1",
		Name:         "A",
		Email:        "a@x.com",
		PasswordHash: hash,
		Role:         domain.RolePatient,
	}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	u := storedUser(t, f, "secret1")
	f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)

	user, token, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	id, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	u := storedUser(t, f, "secret1")
	f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)
	f.repo.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, apperrors.NotFound("user", "ghost@x.com"))

	_, _, wrongPassword := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "wrong"})
	_, _, unknownEmail := f.svc.Login(context.Background(), LoginInput{Email: "ghost@x.com", Password: "secret1"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
		assert.Equal(t, 400, apperrors.HTTPStatus(err))
		assert.Equal(t, "Invalid credentials", err.(*apperrors.AppError).Message)
	}
}

func TestLogin_EmailIsCaseSensitive(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("GetByEmail", mock.Anything, "A@X.com").Return(nil, apperrors.NotFound("user", "A@X.com"))

	_, _, err := f.svc.Login(context.Background(), LoginInput{Email: "A@X.com", Password: "secret1"})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	f.repo.AssertExpectations(t)
}

func TestLogin_TrimsEmailLikeRegister(t *testing.T) {
	f := newAuthFixture(t)
	u := storedUser(t, f, "secret1")
	f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil).Once()

	user, _, err := f.svc.Login(context.Background(), LoginInput{Email: "  a@x.com\t", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	f.repo.AssertExpectations(t)
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	for _, in := range []LoginInput{{Email: "a@x.com"}, {Password: "secret1"}, {Email: "   ", Password: "secret1"}, {}} {
		_, _, err := f.svc.Login(context.Background(), in)
		assert.Equal(t, []string{msgCredentialsRequired}, validationMessages(t, err))
	}
	f.repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin_StorageError(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("timeout"))

	_, _, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "secret1"})

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}

// ============================================================================
// ResolveSession
// ============================================================================

func TestResolveSession_ValidToken(t *testing.T) {
	f := newAuthFixture(t)
	u := &domain.User{ID: "user-1", Role: domain.RoleDoctor}
	f.repo.On("GetByID", mock.Anything, "user-1").Return(u, nil).Once()

	token, _, err := f.tokens.Issue("user-1", domain.RoleDoctor)
	require.NoError(t, err)

	got, err := f.svc.ResolveSession(context.Background(), token)
	require.NoError(t, err)
	assert.Same(t, u, got)
	f.repo.AssertExpectations(t)
}

func TestResolveSession_InvalidTokensAreAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	expiredIssuer := auth.NewTokenManager(testSecret, time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	expired, _, err := expiredIssuer.Issue("user-1", domain.RolePatient)
	require.NoError(t, err)

	forged, _, err := auth.NewTokenManager("another-secret-entirely-for-forging", time.Hour).
		Issue("user-1", domain.RolePatient)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"absent":    "",
		"malformed": "not.a.jwt",
		"expired":   expired,
		"forged":    forged,
	} {
		t.Run(name, func(t *testing.T) {
			user, err := f.svc.ResolveSession(context.Background(), token)
			assert.NoError(t, err)
			assert.Nil(t, user)
		})
	}
	f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolveSession_DeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("GetByID", mock.Anything, "user-gone").Return(nil, apperrors.NotFound("user", "user-gone"))

	token, _, err := f.tokens.Issue("user-gone", domain.RolePatient)
	require.NoError(t, err)

	user, err := f.svc.ResolveSession(context.Background(), token)
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolveSession_StorageErrorIsReported(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.On("GetByID", mock.Anything, "user-1").Return(nil, errors.New("connection refused"))

	token, _, err := f.tokens.Issue("user-1", domain.RolePatient)
	require.NoError(t, err)

	user, err := f.svc.ResolveSession(context.Background(), token)
	require.Error(t, err)
	assert.Nil(t, user)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}
