package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"noelphones/internal/auth"
	apperrors "noelphones/internal/errors"
	"noelphones/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

const testSecret = "test-secret"

func newTestAuthService(repo *MockUserRepository) (AuthService, *auth.JWTService) {
	tokens := auth.NewJWTService(testSecret, time.Hour)
	return NewAuthService(repo, auth.NewBcryptHasher(bcrypt.MinCost), tokens), tokens
}

func TestAuthService_Register(t *testing.T) {
	dbDown := errors.New("connection refused")

	tests := []struct {
		name          string
		input         RegisterInput
		setupMock     func(*MockUserRepository)
		expectedError error
		expectedRole  model.Role
	}{
		{
			name:  "successful registration defaults role",
			input: RegisterInput{Email: "a@x.com", Password: "pw123456"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "a@x.com" && u.Role == model.RoleUser && u.PasswordHash != "" && u.PasswordHash != "pw123456"
				})).Return(nil)
			},
			expectedRole: model.RoleUser,
		},
		{
			name:  "explicit admin role",
			input: RegisterInput{Name: "Root", Email: "root@x.com", Password: "pw123456", Role: model.RoleAdmin},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "root@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedRole: model.RoleAdmin,
		},
		{
			name:          "missing email",
			input:         RegisterInput{Password: "pw123456"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:          "missing password",
			input:         RegisterInput{Email: "a@x.com"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:          "multibyte password over bcrypt limit",
			input:         RegisterInput{Email: "a@x.com", Password: strings.Repeat("é", 40)},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:  "password at bcrypt limit",
			input: RegisterInput{Email: "long@x.com", Password: strings.Repeat("é", 36)},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "long@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedRole: model.RoleUser,
		},
		{
			name:          "unknown role",
			input:         RegisterInput{Email: "a@x.com", Password: "pw123456", Role: "owner"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:  "user already exists",
			input: RegisterInput{Email: "existing@x.com", Password: "pw123456"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@x.com").Return(&model.User{ID: 9, Email: "existing@x.com"}, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:  "lost uniqueness race",
			input: RegisterInput{Email: "race@x.com", Password: "pw123456"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "race@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:  "store failure on lookup",
			input: RegisterInput{Email: "a@x.com", Password: "pw123456"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, dbDown)
			},
			expectedError: dbDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			svc, tokens := newTestAuthService(mockRepo)

			bundle, err := svc.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, bundle)
			} else {
				require.NoError(t, err)
				require.NotNil(t, bundle)
				assert.NotEmpty(t, bundle.Token)
				assert.Equal(t, tt.input.Email, bundle.User.Email)
				assert.Equal(t, tt.input.Name, bundle.User.Name)
				assert.Equal(t, tt.expectedRole, bundle.User.Role)

				id, err := tokens.Verify(bundle.Token)
				require.NoError(t, err)
				assert.Equal(t, auth.Identity{ID: bundle.User.ID, Role: tt.expectedRole, Email: tt.input.Email}, id)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{ID: 11, Name: "Ana", Email: "a@x.com", PasswordHash: string(hashedPassword), Role: model.RoleUser}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "a@x.com",
			password: "pw123456",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "a@x.com",
			password: "nope",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "ghost@x.com",
			password: "pw123456",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "corrupt stored hash",
			email:    "a@x.com",
			password: "pw123456",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(&model.User{ID: 11, Email: "a@x.com", PasswordHash: "garbage", Role: model.RoleUser}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:          "missing password",
			email:         "a@x.com",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			svc, tokens := newTestAuthService(mockRepo)

			bundle, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, bundle)
			} else {
				require.NoError(t, err)
				assert.Equal(t, UserView{ID: 11, Email: "a@x.com", Name: "Ana", Role: model.RoleUser}, bundle.User)
				id, err := tokens.Verify(bundle.Token)
				require.NoError(t, err)
				assert.Equal(t, uint(11), id.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "a@x.com").Return(&model.User{ID: 1, Email: "a@x.com", PasswordHash: string(hashedPassword), Role: model.RoleUser}, nil)
	mockRepo.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, gorm.ErrRecordNotFound)
	svc, _ := newTestAuthService(mockRepo)

	_, wrongPassword := svc.Login(context.Background(), "a@x.com", "bad-password")
	_, unknownEmail := svc.Login(context.Background(), "ghost@x.com", "pw123456")

	assert.Same(t, wrongPassword, unknownEmail)
	assert.Equal(t, apperrors.MapErrorToHTTP(wrongPassword), apperrors.MapErrorToHTTP(unknownEmail))
}

func TestAuthService_RepeatedLoginsIssueFreshTokens(t *testing.T) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "a@x.com").Return(&model.User{ID: 3, Email: "a@x.com", PasswordHash: string(hashedPassword), Role: model.RoleUser}, nil)
	svc, tokens := newTestAuthService(mockRepo)

	first, err := svc.Login(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	firstID, err := tokens.Verify(first.Token)
	require.NoError(t, err)
	secondID, err := tokens.Verify(second.Token)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Run("creates missing admin", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "admin@x.com").Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleAdmin && u.Email == "admin@x.com"
		})).Return(nil)
		svc, _ := newTestAuthService(mockRepo)

		user, created, err := svc.EnsureAdmin(context.Background(), "Admin", "admin@x.com", "pw123456")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, model.RoleAdmin, user.Role)
		mockRepo.AssertExpectations(t)
		mockRepo.AssertNumberOfCalls(t, "FindByEmail", 1)
	})

	t.Run("lost uniqueness race", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByEmail", mock.Anything, "admin@x.com").Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
		svc, _ := newTestAuthService(mockRepo)

		_, created, err := svc.EnsureAdmin(context.Background(), "Admin", "admin@x.com", "pw123456")
		assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		assert.False(t, created)
	})

	t.Run("rejects password over bcrypt limit", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc, _ := newTestAuthService(mockRepo)

		_, _, err := svc.EnsureAdmin(context.Background(), "Admin", "admin@x.com", strings.Repeat("é", 40))
		require.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, "password must be at most 72 bytes", err.Error())
		mockRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("leaves existing account alone", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		existing := &model.User{ID: 4, Email: "admin@x.com", Role: model.RoleAdmin}
		mockRepo.On("FindByEmail", mock.Anything, "admin@x.com").Return(existing, nil)
		svc, _ := newTestAuthService(mockRepo)

		user, created, err := svc.EnsureAdmin(context.Background(), "Admin", "admin@x.com", "pw123456")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, existing, user)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mockRepo.AssertNumberOfCalls(t, "FindByEmail", 1)
	})

	t.Run("requires credentials", func(t *testing.T) {
		svc, _ := newTestAuthService(new(MockUserRepository))
		_, _, err := svc.EnsureAdmin(context.Background(), "Admin", "", "")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}
