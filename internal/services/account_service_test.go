package services_test

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"comptes/internal/models"
	"comptes/internal/repositories"
	"comptes/internal/services"
)

// MockUserRepo is a mock implementation of repositories.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetAll() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByVerificationToken(token string) (*models.User, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) CountByIDPrefix(prefix string) (int64, error) {
	args := m.Called(prefix)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) CountByEmail(email string) (int64, error) {
	args := m.Called(email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) CountByUsername(username string) (int64, error) {
	args := m.Called(username)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

// RecorderMailer records the last verification email instead of sending it.
type RecorderMailer struct {
	To    string
	Link  string
	Calls int
	Err   error
}

func (r *RecorderMailer) SendVerificationEmail(to, firstname, lastname, verificationLink string) error {
	r.To = to
	r.Link = verificationLink
	r.Calls++
	return r.Err
}

// TestMain is used to setup the test environment
func TestMain(m *testing.M) {
	log.SetOutput(os.Stdout)
	code := m.Run()
	os.Exit(code)
}

func validInput() *services.RegisterInput {
	return &services.RegisterInput{
		Firstname: "Jean",
		Lastname:  "Dupont",
		Username:  "jdupont",
		Email:     "jean@x.com",
		Password:  "p1",
	}
}

func TestAccountService_Register(t *testing.T) {
	t.Run("creates an unverified user with a pending token", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		recorder := &RecorderMailer{}
		svc := services.NewAccountService(mockRepo, recorder, nil, "http://localhost:3000", 24*time.Hour)

		mockRepo.On("CountByEmail", "jean@x.com").Return(int64(0), nil).Once()
		mockRepo.On("CountByUsername", "jdupont").Return(int64(0), nil).Once()
		mockRepo.On("CountByIDPrefix", "DUPJEA").Return(int64(0), nil).Once()
		mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

		user, err := svc.Register(validInput())
		assert.NoError(t, err)
		assert.Equal(t, "DUPJEA", user.ID)
		assert.False(t, user.Verified)
		assert.NotNil(t, user.VerificationToken)
		assert.NotNil(t, user.VerificationSentAt)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("p1")))

		assert.Equal(t, 1, recorder.Calls)
		assert.Equal(t, "jean@x.com", recorder.To)
		assert.Equal(t, "http://localhost:3000/verify-email?token="+*user.VerificationToken, recorder.Link)
		mockRepo.AssertExpectations(t)
	})

	t.Run("nil input", func(t *testing.T) {
		svc := services.NewAccountService(new(MockUserRepo), &RecorderMailer{}, nil, "", 0)
		_, err := svc.Register(nil)
		assert.ErrorIs(t, err, services.ErrNoData)
	})

	t.Run("missing field", func(t *testing.T) {
		svc := services.NewAccountService(new(MockUserRepo), &RecorderMailer{}, nil, "", 0)
		input := validInput()
		input.Password = ""
		_, err := svc.Register(input)
		assert.ErrorIs(t, err, services.ErrMissingField)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 0)

		mockRepo.On("CountByEmail", "jean@x.com").Return(int64(1), nil).Once()

		_, err := svc.Register(validInput())
		assert.ErrorIs(t, err, services.ErrDuplicateEmail)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 0)

		mockRepo.On("CountByEmail", "jean@x.com").Return(int64(0), nil).Once()
		mockRepo.On("CountByUsername", "jdupont").Return(int64(1), nil).Once()

		_, err := svc.Register(validInput())
		assert.ErrorIs(t, err, services.ErrDuplicateUsername)
		mockRepo.AssertExpectations(t)
	})

	t.Run("colliding seed gets the truncated prefix and a suffix", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "http://localhost:3000", 0)

		mockRepo.On("CountByEmail", "jean2@x.com").Return(int64(0), nil).Once()
		mockRepo.On("CountByUsername", "jdupont2").Return(int64(0), nil).Once()
		mockRepo.On("CountByIDPrefix", "DUPJEA").Return(int64(1), nil).Once()
		mockRepo.On("CountByIDPrefix", "DUPJE").Return(int64(1), nil).Once()
		mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

		input := validInput()
		input.Username = "jdupont2"
		input.Email = "jean2@x.com"
		user, err := svc.Register(input)
		assert.NoError(t, err)
		assert.Equal(t, "DUPJE2", user.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("store uniqueness conflict maps back to the duplicate error", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 0)

		mockRepo.On("CountByEmail", "jean@x.com").Return(int64(0), nil).Once()
		mockRepo.On("CountByUsername", "jdupont").Return(int64(0), nil).Once()
		mockRepo.On("CountByIDPrefix", "DUPJEA").Return(int64(0), nil).Once()
		mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(repositories.ErrConflict).Once()
		// The racing registration took the email between the check and the insert.
		mockRepo.On("CountByEmail", "jean@x.com").Return(int64(1), nil).Once()

		_, err := svc.Register(validInput())
		assert.ErrorIs(t, err, services.ErrDuplicateEmail)
		mockRepo.AssertExpectations(t)
	})

	t.Run("mail failure does not roll back the account", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		recorder := &RecorderMailer{Err: assert.AnError}
		svc := services.NewAccountService(mockRepo, recorder, nil, "", 0)

		mockRepo.On("CountByEmail", "jean@x.com").Return(int64(0), nil).Once()
		mockRepo.On("CountByUsername", "jdupont").Return(int64(0), nil).Once()
		mockRepo.On("CountByIDPrefix", "DUPJEA").Return(int64(0), nil).Once()
		mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

		user, err := svc.Register(validInput())
		assert.NoError(t, err)
		assert.NotNil(t, user)
		mockRepo.AssertExpectations(t)
	})
}

func pendingUser(token string, sentAt time.Time) *models.User {
	return &models.User{
		ID:                 "DUPJEA",
		Firstname:          "Jean",
		Lastname:           "Dupont",
		Username:           "jdupont",
		Email:              "jean@x.com",
		Password:           "hash",
		Verified:           false,
		VerificationToken:  &token,
		VerificationSentAt: &sentAt,
	}
}

func TestAccountService_VerifyEmail(t *testing.T) {
	t.Run("consumes the token and flips the account to verified", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 24*time.Hour)

		mockRepo.On("GetByVerificationToken", "tok-1").Return(pendingUser("tok-1", time.Now()), nil).Once()
		mockRepo.On("Update", mock.AnythingOfType("*models.User")).Return(nil).Once()

		user, err := svc.VerifyEmail("tok-1")
		assert.NoError(t, err)
		assert.True(t, user.Verified)
		assert.Nil(t, user.VerificationToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown or already consumed token", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 24*time.Hour)

		mockRepo.On("GetByVerificationToken", "tok-gone").Return(nil, repositories.ErrNotFound).Once()

		_, err := svc.VerifyEmail("tok-gone")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("token is single use", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 24*time.Hour)

		mockRepo.On("GetByVerificationToken", "tok-1").Return(pendingUser("tok-1", time.Now()), nil).Once()
		mockRepo.On("Update", mock.AnythingOfType("*models.User")).Return(nil).Once()
		// The token column was nulled by the first call, so the second lookup misses.
		mockRepo.On("GetByVerificationToken", "tok-1").Return(nil, repositories.ErrNotFound).Once()

		_, err := svc.VerifyEmail("tok-1")
		assert.NoError(t, err)
		_, err = svc.VerifyEmail("tok-1")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("expired token is rejected without a state change", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 24*time.Hour)

		stale := pendingUser("tok-old", time.Now().Add(-48*time.Hour))
		mockRepo.On("GetByVerificationToken", "tok-old").Return(stale, nil).Once()

		_, err := svc.VerifyEmail("tok-old")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty token", func(t *testing.T) {
		svc := services.NewAccountService(new(MockUserRepo), &RecorderMailer{}, nil, "", 0)
		_, err := svc.VerifyEmail("")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
	})
}

func TestAccountService_ResendVerification(t *testing.T) {
	t.Run("mints a fresh token and re-sends the email", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		recorder := &RecorderMailer{}
		svc := services.NewAccountService(mockRepo, recorder, nil, "http://localhost:3000", 24*time.Hour)

		user := pendingUser("tok-old", time.Now().Add(-48*time.Hour))
		mockRepo.On("GetByEmail", "jean@x.com").Return(user, nil).Once()
		mockRepo.On("Update", mock.AnythingOfType("*models.User")).Return(nil).Once()

		err := svc.ResendVerification("jean@x.com")
		assert.NoError(t, err)
		assert.NotEqual(t, "tok-old", *user.VerificationToken)
		assert.Equal(t, 1, recorder.Calls)
		assert.Contains(t, recorder.Link, *user.VerificationToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 0)

		mockRepo.On("GetByEmail", "nobody@x.com").Return(nil, repositories.ErrNotFound).Once()

		err := svc.ResendVerification("nobody@x.com")
		assert.ErrorIs(t, err, services.ErrNoSuchUser)
		mockRepo.AssertExpectations(t)
	})

	t.Run("already verified account", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := services.NewAccountService(mockRepo, &RecorderMailer{}, nil, "", 0)

		verified := pendingUser("tok-1", time.Now())
		verified.Verified = true
		verified.VerificationToken = nil
		mockRepo.On("GetByEmail", "jean@x.com").Return(verified, nil).Once()

		err := svc.ResendVerification("jean@x.com")
		assert.ErrorIs(t, err, services.ErrAlreadyVerified)
		mockRepo.AssertExpectations(t)
	})

	t.Run("mail failure is surfaced", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		recorder := &RecorderMailer{Err: assert.AnError}
		svc := services.NewAccountService(mockRepo, recorder, nil, "", 0)

		mockRepo.On("GetByEmail", "jean@x.com").Return(pendingUser("tok-1", time.Now()), nil).Once()
		mockRepo.On("Update", mock.AnythingOfType("*models.User")).Return(nil).Once()

		err := svc.ResendVerification("jean@x.com")
		assert.Error(t, err)
		assert.False(t, services.IsDomainError(err))
		mockRepo.AssertExpectations(t)
	})
}
