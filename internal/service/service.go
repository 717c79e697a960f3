package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oasis-app/oasis-service/internal/cache"
	"github.com/oasis-app/oasis-service/internal/coach"
	"github.com/oasis-app/oasis-service/internal/config"
	"github.com/oasis-app/oasis-service/internal/eligibility"
	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
)

var (
	// ErrInvalidCredentials is returned by Login for unknown users or bad passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoHousehold is returned when an operation needs a household profile.
	ErrNoHousehold = errors.New("household profile not set")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Store is the persistence the service depends on.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListAlertUsers(ctx context.Context) ([]models.User, error)
	FindAccountByUserID(ctx context.Context, userID int64) (*models.Account, error)
	UpsertHousehold(ctx context.Context, h *models.HouseholdProfile) error
	GetHousehold(ctx context.Context, userID int64) (*models.HouseholdProfile, error)
	SaveEligibility(ctx context.Context, rec *models.EligibilityRecord) error
	ListEligibility(ctx context.Context, userID int64, limit uint64) ([]models.EligibilityRecord, error)
	AddTransaction(ctx context.Context, t *models.Transaction) (float64, error)
	ListTransactions(ctx context.Context, accountID int64, since time.Time) ([]models.Transaction, error)
	SaveHealthSnapshot(ctx context.Context, userID int64, h models.FinancialHealthSummary) error
	CreateEBTCard(ctx context.Context, card *models.EBTCard) error
	ListEBTCards(ctx context.Context, userID int64) ([]models.EBTCard, error)
	UpdateEBTBalance(ctx context.Context, userID, cardID int64, snap, cash float64) error
	SaveChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, userID int64, conversationID string, limit uint64) ([]models.ChatMessage, error)
}

var _ Store = (*repository.Repository)(nil)

// ResourceLister lists community resources.
type ResourceLister interface {
	List(ctx context.Context, category string) ([]models.CommunityResource, error)
}

// Alerter notifies a user about an upcoming crisis.
type Alerter interface {
	SendCrisisAlert(to, username string, health models.FinancialHealthSummary) error
}

// Deps wires collaborators into the service. Cache, Coach, Resources and
// Alerter are optional.
type Deps struct {
	Store      Store
	Cache      *cache.Cache
	Calculator *eligibility.Calculator
	Coach      *coach.Coach
	Resources  ResourceLister
	Alerter    Alerter
	Logger     *logrus.Logger
	Config     *config.Config
}

// Service handles business logic
type Service struct {
	store     Store
	cache     *cache.Cache
	calc      *eligibility.Calculator
	coach     *coach.Coach
	resources ResourceLister
	alerter   Alerter
	log       *logrus.Logger
	config    *config.Config
	encKey    []byte
	now       func() time.Time
}

// NewService initializes a new service
func NewService(deps Deps) (*Service, error) {
	key, err := deps.Config.EncryptionKeyBytes()
	if err != nil {
		return nil, err
	}
	calc := deps.Calculator
	if calc == nil {
		calc = eligibility.NewCalculator()
	}
	c := deps.Coach
	if c == nil {
		c = coach.New(nil, deps.Logger)
	}
	return &Service{
		store:     deps.Store,
		cache:     deps.Cache,
		calc:      calc,
		coach:     c,
		resources: deps.Resources,
		alerter:   deps.Alerter,
		log:       deps.Logger,
		config:    deps.Config,
		encKey:    key,
		now:       time.Now,
	}, nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	p, ok := s.store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return nil, invalid("username is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email %q is not valid", email)
	}
	if len(password) < 8 {
		return nil, invalid("password must be at least 8 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		PasswordHash:  string(hashedPassword),
		AlertsEnabled: true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("email already registered")
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorf("Login lookup failed: %v", err)
		}
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}
