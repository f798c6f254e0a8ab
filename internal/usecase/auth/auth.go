package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mangala_backend/internal/domain/user"
	errs "mangala_backend/internal/errors"
)

type UserStorage interface {
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByID(ctx context.Context, id string) (user.User, error)
	CreateUser(ctx context.Context, newUser user.User) error
}

const tokenTTL = 30 * time.Minute

type AuthUsecaseHandler struct {
	userStorage UserStorage
	secret      []byte
}

func NewAuthUsecaseHandler(u UserStorage, jwtSecret string) *AuthUsecaseHandler {
	return &AuthUsecaseHandler{
		userStorage: u,
		secret:      []byte(jwtSecret),
	}
}

func (a *AuthUsecaseHandler) RegisterUser(ctx context.Context, username, email, password string) (user.User, error) {
	if _, err := a.userStorage.GetUserByUsername(ctx, username); err == nil {
		return user.User{}, errs.ErrUserExists
	}
	if _, err := a.userStorage.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, errs.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}

	newUser := user.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Rating:       1000.0,
		PasswordHash: string(hash),
	}
	if err := a.userStorage.CreateUser(ctx, newUser); err != nil {
		return user.User{}, err
	}
	return newUser, nil
}

// LoginUser checks the credentials and issues a bearer token carrying the
// user id in the sub claim.
func (a *AuthUsecaseHandler) LoginUser(ctx context.Context, email, password string) (string, error) {
	userFromDb, err := a.userStorage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return "", errs.ErrUserNotFound
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(userFromDb.PasswordHash), []byte(password)); err != nil {
		return "", errs.ErrWrongPassword
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userFromDb.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})

	return token.SignedString(a.secret)
}

// VerifyToken is the identity check every game connection goes through.
// Any parse, signature or expiry problem comes back as ErrBadToken.
func (a *AuthUsecaseHandler) VerifyToken(ctx context.Context, tokenString string) (user.User, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrBadToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return user.User{}, errs.ErrBadToken
	}

	userFromDb, err := a.userStorage.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return user.User{}, errs.ErrBadToken
	}
	return userFromDb, nil
}

func (a *AuthUsecaseHandler) GetUserByUserId(ctx context.Context, id string) (user.User, error) {
	return a.userStorage.GetUserByID(ctx, id)
}
