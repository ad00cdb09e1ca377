package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
)

// Sentinel errors returned by AuthService. Handlers map these to HTTP
// statuses with errors.Is; the messages are safe to echo to clients.
var (
	ErrEmailNotInstitutional  = errors.New("only SRM Institute email addresses (@srmist.edu.in) are allowed")
	ErrEmailAlreadyRegistered = errors.New("an account with this email already exists")
	// ErrInvalidCredentials deliberately covers both "email not found" and
	// "wrong password" so a caller cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken deliberately covers malformed, forged and expired
	// tokens with one message.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// credentialHashCost is the bcrypt work factor for stored passwords.
const credentialHashCost = 12

// EventPublisher publishes account-lifecycle events. The concrete
// implementation lives in pkg/rabbitmq; a nil publisher disables events.
type EventPublisher interface {
	PublishUserRegistered(payload map[string]interface{}) error
}

// AuthService handles business logic for authentication and authorization:
// credential hashing and verification, token issuance and validation.
type AuthService struct {
	userRepo  repositories.UserRepository
	publisher EventPublisher
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService. The signing secret and token
// TTL are fixed at construction and never read from ambient state.
func NewAuthService(userRepo repositories.UserRepository, publisher EventPublisher, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		publisher: publisher,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new user account. The email is normalized to
// lowercase and must belong to the institutional domain; the password is
// stored only as a bcrypt hash. Returns the created user with the hash
// cleared, plus a freshly issued token.
func (s *AuthService) Register(name, email, password string) (*models.User, string, error) {
	email = models.NormalizeEmail(email)
	if !models.HasInstitutionalDomain(email) {
		return nil, "", ErrEmailNotInstitutional
	}

	// Best-effort pre-check. The database's unique index is the actual
	// guarantee; a concurrent registration can still surface as
	// ErrDuplicateEmail from Create below.
	if existing, err := s.userRepo.GetByEmail(email); err == nil && existing != nil {
		return nil, "", ErrEmailAlreadyRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), credentialHashCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:             name,
		Email:            email,
		Password:         string(hashed),
		SkillsCanTeach:   []models.Skill{},
		SkillsToLearn:    []string{},
		KnowledgeCredits: models.DefaultKnowledgeCredits,
		Role:             models.RoleStudent,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, "", ErrEmailAlreadyRegistered
		}
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	// Fire-and-forget event; registration succeeds even if the broker is
	// down or not configured.
	if s.publisher != nil {
		payload := map[string]interface{}{
			"userID":           user.ID,
			"email":            user.Email,
			"knowledgeCredits": user.KnowledgeCredits,
		}
		if err := s.publisher.PublishUserRegistered(payload); err != nil {
			log.Printf("Warning: failed to publish user registered event for %s: %v", user.ID, err)
		}
	}

	sanitized := user.Sanitized()
	return &sanitized, token, nil
}

// Login authenticates an email/password pair and returns the user with a
// freshly issued token. Lookup failures and password mismatches both map
// to ErrInvalidCredentials.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	email = models.NormalizeEmail(email)

	user, err := s.userRepo.GetByEmailWithPassword(email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	// bcrypt's comparison is the only equality check the stored hash ever
	// sees; it does not leak where a mismatch occurs.
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, token, nil
}

// GenerateToken issues a signed bearer token naming the user as subject.
// Purely computational: nothing is written to the store.
func (s *AuthService) GenerateToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken checks the signature and expiry of a token and returns its
// subject. It never consults the store; whether the subject still exists
// is the authenticator's job. All failure modes collapse into
// ErrInvalidToken so callers cannot probe verification internals.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

// GetUserByID resolves a token subject to a stored user, password hash
// omitted. Used by the authentication middleware after ValidateToken.
func (s *AuthService) GetUserByID(id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}
