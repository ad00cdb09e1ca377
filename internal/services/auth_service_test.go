package services_test

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmailWithPassword(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListExcept(id string, limit int) ([]models.User, error) {
	args := m.Called(id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishUserRegistered(payload map[string]interface{}) error {
	args := m.Called(payload)
	return args.Error(0)
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

const testJWTSecret = "test_jwt_secret"

func newAuthService(repo repositories.UserRepository, publisher services.EventPublisher) *services.AuthService {
	return services.NewAuthService(repo, publisher, testJWTSecret, time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockEventPublisher)
	authService := newAuthService(mockRepo, mockPublisher)

	mockRepo.On("GetByEmail", "arjun@srmist.edu.in").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()
	mockPublisher.On("PublishUserRegistered", mock.Anything).Return(nil).Once()

	// Mixed-case email must be normalized before storage.
	user, token, err := authService.Register("Arjun Sharma", "Arjun@srmist.edu.in", "secret1")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "arjun@srmist.edu.in", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, models.DefaultKnowledgeCredits, user.KnowledgeCredits)
	assert.Empty(t, user.Password, "returned user must not carry the hash")
	mockRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)

	// The record handed to Create must hold a bcrypt hash, never the
	// plaintext, and the hash must verify only for the original password.
	created := mockRepo.Calls[1].Arguments.Get(0).(*models.User)
	assert.NotEqual(t, "secret1", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret1")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret2")))
}

func TestAuthService_Register_NonInstitutionalEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	_, _, err := authService.Register("Arjun Sharma", "arjun@gmail.com", "secret1")
	assert.ErrorIs(t, err, services.ErrEmailNotInstitutional)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	// Pre-check catches an existing account.
	mockRepo.On("GetByEmail", "arjun@srmist.edu.in").Return(&models.User{ID: "user-1"}, nil).Once()
	_, _, err := authService.Register("Arjun Sharma", "arjun@srmist.edu.in", "secret1")
	assert.ErrorIs(t, err, services.ErrEmailAlreadyRegistered)
	mockRepo.AssertExpectations(t)

	// A concurrent registration can slip past the pre-check; the store's
	// unique index reports the conflict late and it must map the same way.
	mockRepo.On("GetByEmail", "arjun@srmist.edu.in").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateEmail).Once()
	_, _, err = authService.Register("Arjun Sharma", "arjun@srmist.edu.in", "secret1")
	assert.ErrorIs(t, err, services.ErrEmailAlreadyRegistered)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Register_PublisherFailureIsNonFatal(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPublisher := new(MockEventPublisher)
	authService := newAuthService(mockRepo, mockPublisher)

	mockRepo.On("GetByEmail", "priya@srmist.edu.in").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()
	mockPublisher.On("PublishUserRegistered", mock.Anything).Return(errors.New("broker down")).Once()

	user, token, err := authService.Register("Priya", "priya@srmist.edu.in", "secret1")
	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.NotEmpty(t, token)
	mockPublisher.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	stored := &models.User{
		ID:       "user-123",
		Name:     "Arjun Sharma",
		Email:    "arjun@srmist.edu.in",
		Password: string(hashedPassword),
	}

	// Successful login returns a sanitized user and a verifiable token.
	mockRepo.On("GetByEmailWithPassword", "arjun@srmist.edu.in").Return(stored, nil).Once()
	user, token, err := authService.Login("Arjun@srmist.edu.in", "secret1")
	assert.NoError(t, err)
	assert.Empty(t, user.Password)

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "user-123", claims["sub"])
	mockRepo.AssertExpectations(t)

	// Wrong password and unknown email collapse into the same error so a
	// caller cannot tell accounts apart.
	mockRepo.On("GetByEmailWithPassword", "arjun@srmist.edu.in").Return(stored, nil).Once()
	_, _, err = authService.Login("arjun@srmist.edu.in", "wrongpass")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	mockRepo.On("GetByEmailWithPassword", "nobody@srmist.edu.in").Return(nil, repositories.ErrUserNotFound).Once()
	_, _, err = authService.Login("nobody@srmist.edu.in", "secret1")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, nil)

	// Freshly issued token verifies and names its subject.
	tokenString, err := authService.GenerateToken("user-123")
	assert.NoError(t, err)
	subject, err := authService.ValidateToken(tokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", subject)

	// Garbage input.
	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Tampered signature.
	last := tokenString[len(tokenString)-1]
	flipped := byte('A')
	if last == 'A' {
		flipped = 'B'
	}
	tampered := tokenString[:len(tokenString)-1] + string(flipped)
	_, err = authService.ValidateToken(tampered)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Token signed with a different secret.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	foreignString, _ := foreign.SignedString([]byte("other_secret"))
	_, err = authService.ValidateToken(foreignString)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Expired token: issue through a service whose TTL already elapsed.
	expiredService := services.NewAuthService(mockRepo, nil, testJWTSecret, -time.Hour)
	expiredString, err := expiredService.GenerateToken("user-123")
	assert.NoError(t, err)
	_, err = authService.ValidateToken(expiredString)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Token with no usable subject claim.
	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubString, _ := noSub.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(noSubString)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}
