package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/kv"
)

const credentialKey = "auth_token_v1"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type userRow struct {
	ID           uuid.UUID `gorm:"type:varchar(36);primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

// Service implements Provider over a user table, with the signed-in
// credential persisted through the local KV store so a relaunch
// restores the session.
type Service struct {
	db        *gorm.DB
	jwtSecret string
	local     kv.Store
	log       *zap.Logger

	mu        sync.Mutex
	current   *User
	resolved  bool
	listeners map[int]func(*User)
	nextID    int

	resolveOnce sync.Once
}

var _ Provider = (*Service)(nil)

// NewService creates the identity service, migrating the users table.
func NewService(db *gorm.DB, jwtSecret string, local kv.Store, log *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users table: %w", err)
	}
	return &Service{
		db:        db,
		jwtSecret: jwtSecret,
		local:     local,
		log:       log,
		listeners: make(map[int]func(*User)),
	}, nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	var existing userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	row := userRow{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.establishSession(row)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.establishSession(row)
}

func (s *Service) SignOut(ctx context.Context) error {
	if err := s.local.Remove(credentialKey); err != nil {
		return fmt.Errorf("failed to clear stored credential: %w", err)
	}
	s.setCurrent(nil)
	return nil
}

func (s *Service) AuthChanges(fn func(user *User)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	resolved := s.resolved
	current := s.current
	s.mu.Unlock()

	if resolved {
		fn(current)
	} else {
		s.resolveOnce.Do(func() { go s.resolveStoredCredential() })
	}

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// establishSession issues a token, persists it, and publishes the user.
func (s *Service) establishSession(row userRow) (*User, error) {
	token, err := s.generateToken(row.ID)
	if err != nil {
		return nil, err
	}
	if err := s.local.Set(credentialKey, token); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	user := &User{ID: row.ID.String(), Email: row.Email}
	s.setCurrent(user)
	return user, nil
}

// resolveStoredCredential restores the session from the persisted token
// and delivers the first auth-change event. Any failure resolves to a
// signed-out session; the stream itself never errs.
func (s *Service) resolveStoredCredential() {
	token, ok, err := s.local.Get(credentialKey)
	if err != nil {
		s.log.Warn("failed to read stored credential", zap.Error(err))
		s.setCurrent(nil)
		return
	}
	if !ok {
		s.setCurrent(nil)
		return
	}

	userID, err := s.validateToken(token)
	if err != nil {
		s.log.Info("stored credential rejected", zap.Error(err))
		_ = s.local.Remove(credentialKey)
		s.setCurrent(nil)
		return
	}

	var row userRow
	if err := s.db.Where("id = ?", userID).First(&row).Error; err != nil {
		s.log.Warn("stored credential references unknown user", zap.Error(err))
		_ = s.local.Remove(credentialKey)
		s.setCurrent(nil)
		return
	}

	s.setCurrent(&User{ID: row.ID.String(), Email: row.Email})
}

// setCurrent replaces the current user, marks resolution complete, and
// notifies every listener.
func (s *Service) setCurrent(user *User) {
	s.mu.Lock()
	s.current = user
	s.resolved = true
	fns := make([]func(*User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

func (s *Service) generateToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(30 * 24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) validateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("invalid token claims")
	}
	return uuid.Parse(userIDStr)
}
