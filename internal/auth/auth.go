package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
)

type Service struct {
	store     *store.Store
	jwtSecret string
	tokenTTL  time.Duration
}

type Claims struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func New(st *store.Store, jwtSecret string) *Service {
	return NewWithTokenTTL(st, jwtSecret, 24*time.Hour)
}

func NewWithTokenTTL(st *store.Store, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	return &Service{
		store:     st,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// NormalizeUsername lowercases and trims a handle; uniqueness checks always
// compare normalized forms.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Register creates a new account record and returns it.
func (s *Service) Register(username, password, displayName string) (*models.User, error) {
	username = NormalizeUsername(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, fmt.Errorf("username must be between 3 and 32 characters")
	}

	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("username can only contain letters, numbers, and underscores")
	}

	if len(password) < 4 {
		return nil, fmt.Errorf("password must be at least 4 characters")
	}

	users, err := store.GetAllInto[models.User](s.store, store.Users)
	if err != nil {
		return nil, fmt.Errorf("storage unavailable: %w", err)
	}
	var maxNumeric int64
	for _, u := range users {
		if NormalizeUsername(u.Username) == username {
			return nil, fmt.Errorf("username already exists")
		}
		if u.NumericID > maxNumeric {
			maxNumeric = u.NumericID
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if displayName == "" {
		displayName = username
	}

	now := time.Now().UnixMilli()
	user := models.User{
		UID:            uuid.NewString(),
		NumericID:      maxNumeric + 1,
		Username:       username,
		DisplayName:    displayName,
		SecretHash:     string(hash),
		Gifts:          []models.Gift{},
		JoinedChannels: []string{},
		ArchivedChats:  []string{},
		Sessions:       []models.DeviceSession{},
		BlockedUsers:   []string{},
		Contacts:       []string{},
		InviteLink:     "ultimate.app/" + username,
		Presence:       models.Presence{IsOnline: true, LastSeen: now},
		Privacy: models.Privacy{
			InactivityMonths: 12,
			LastSeen:         "everybody",
			Forwarding:       "everybody",
		},
	}

	if err := s.store.Put(store.Users, user.UID, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return &user, nil
}

// Login verifies credentials and returns the account with a signed token.
func (s *Service) Login(username, password string) (*models.User, string, error) {
	username = NormalizeUsername(username)

	user, err := s.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("invalid username or password")
		}
		return nil, "", err
	}

	if user.IsBanned {
		return nil, "", fmt.Errorf("user is banned")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid username or password")
	}

	token, err := s.GenerateToken(user.UID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

func (s *Service) GenerateToken(uid, username string) (string, error) {
	claims := Claims{
		UID:      uid,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// GetUserByUsername finds an account by normalized handle. Returns
// store.ErrNotFound when absent.
func (s *Service) GetUserByUsername(username string) (*models.User, error) {
	username = NormalizeUsername(username)
	users, err := store.GetAllInto[models.User](s.store, store.Users)
	if err != nil {
		return nil, fmt.Errorf("storage unavailable: %w", err)
	}
	for i := range users {
		if NormalizeUsername(users[i].Username) == username {
			return &users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// UserExists checks if an account with the given uid exists.
func (s *Service) UserExists(uid string) (bool, error) {
	var user models.User
	err := s.store.Get(store.Users, uid, &user)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return true, nil
}
