package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"comptes/internal/models"
	"comptes/internal/repositories"
	"comptes/pkg/mailer"
	"comptes/pkg/rabbitmq"
)

// AccountService handles registration, email verification and user lookups.
type AccountService struct {
	userRepo repositories.UserRepository
	mailer   mailer.Mailer
	mqClient *rabbitmq.Client
	baseURL  string
	tokenTTL time.Duration // validity window of a verification token
}

// NewAccountService creates a new AccountService. mqClient may be nil, in
// which case lifecycle events are not published. baseURL is the public base
// of this service, used to build verification links. A tokenTTL of zero
// disables verification-token expiry.
func NewAccountService(userRepo repositories.UserRepository, m mailer.Mailer, mqClient *rabbitmq.Client, baseURL string, tokenTTL time.Duration) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		mailer:   m,
		mqClient: mqClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokenTTL: tokenTTL,
	}
}

// RegisterInput is the payload accepted by Register. Every field is
// required.
type RegisterInput struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// Register validates the input, enforces email and username uniqueness,
// derives the account ID, hashes the password and persists the new account
// in the unverified state with a freshly minted verification token. The
// verification email and the lifecycle event are dispatched best-effort: a
// delivery failure does not roll the account back, the resend endpoint is
// the recovery path.
func (s *AccountService) Register(input *RegisterInput) (*models.User, error) {
	if input == nil {
		return nil, ErrNoData
	}
	if input.Firstname == "" || input.Lastname == "" || input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, ErrMissingField
	}

	emailCount, err := s.userRepo.CountByEmail(input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if emailCount > 0 {
		return nil, ErrDuplicateEmail
	}

	usernameCount, err := s.userRepo.CountByUsername(input.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	if usernameCount > 0 {
		return nil, ErrDuplicateUsername
	}

	id, err := s.generateID(BuildSeed(input.Firstname, input.Lastname))
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token := uuid.New().String()
	now := time.Now()
	user := &models.User{
		ID:                 id,
		Firstname:          input.Firstname,
		Lastname:           input.Lastname,
		Username:           input.Username,
		Email:              input.Email,
		Password:           string(hashedPassword),
		Verified:           false,
		VerificationToken:  &token,
		VerificationSentAt: &now,
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// A concurrent registration won the race between our uniqueness
			// check and this insert. Report the field the same way the
			// up-front check would have, email first.
			if count, countErr := s.userRepo.CountByEmail(input.Email); countErr == nil && count > 0 {
				return nil, ErrDuplicateEmail
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerification(user, token)
	s.publishEvent("user.registered", user)

	return user, nil
}

// VerifyEmail consumes a verification token. The token matches at most one
// pending account; it is cleared on success so presenting it a second time
// fails. Tokens older than the configured TTL are rejected the same way as
// unknown ones.
func (s *AccountService) VerifyEmail(token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByVerificationToken(token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	if s.tokenTTL > 0 && user.VerificationSentAt != nil && time.Since(*user.VerificationSentAt) > s.tokenTTL {
		return nil, ErrInvalidToken
	}

	user.Verified = true
	user.VerificationToken = nil
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to mark user %s verified: %w", user.ID, err)
	}

	s.publishEvent("user.verified", user)

	return user, nil
}

// ResendVerification mints a fresh token for an unverified account and sends
// a new verification email. The previous token stops matching as soon as the
// new one is persisted.
func (s *AccountService) ResendVerification(email string) error {
	if email == "" {
		return ErrMissingField
	}

	user, err := s.userRepo.GetByEmail(email)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNoSuchUser
	}
	if err != nil {
		return fmt.Errorf("failed to look up user by email: %w", err)
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	token := uuid.New().String()
	now := time.Now()
	user.VerificationToken = &token
	user.VerificationSentAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to store new verification token: %w", err)
	}

	// Unlike registration, delivery is the whole point here, so a mail
	// failure is surfaced to the caller.
	if err := s.mailer.SendVerificationEmail(user.Email, user.Firstname, user.Lastname, s.verificationLink(token)); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// GetUsers retrieves all users.
func (s *AccountService) GetUsers() ([]models.User, error) {
	return s.userRepo.GetAll()
}

// GetUserByID retrieves a single user by ID.
func (s *AccountService) GetUserByID(id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

func (s *AccountService) verificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)
}

func (s *AccountService) sendVerification(user *models.User, token string) {
	if err := s.mailer.SendVerificationEmail(user.Email, user.Firstname, user.Lastname, s.verificationLink(token)); err != nil {
		log.Printf("Warning: failed to send verification email to %s: %v", user.Email, err)
	}
}

func (s *AccountService) publishEvent(eventType string, user *models.User) {
	if s.mqClient == nil {
		return
	}
	payload := map[string]interface{}{
		"userID":   user.ID,
		"username": user.Username,
		"email":    user.Email,
		"verified": user.Verified,
	}
	if err := s.mqClient.PublishAccountEvent(eventType, payload); err != nil {
		log.Printf("Warning: failed to publish %s event for user %s: %v", eventType, user.ID, err)
	}
}
