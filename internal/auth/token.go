// Package auth mints and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	purposeAccess      = "access"
	purposeVerifyEmail = "verify-email"
)

// Claims is the token payload: the subject is the user id.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

type Tokens struct {
	secret    []byte
	ttl       time.Duration
	verifyTTL time.Duration
	now       func() time.Time
}

func NewTokens(secret string, ttl, verifyTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, verifyTTL: verifyTTL, now: time.Now}
}

// Issue mints an access token for the user.
func (t *Tokens) Issue(userID int, email string) (string, error) {
	return t.sign(userID, email, purposeAccess, t.ttl)
}

// IssueVerification mints a short lived token for an email confirmation link.
func (t *Tokens) IssueVerification(userID int, email string) (string, error) {
	return t.sign(userID, email, purposeVerifyEmail, t.verifyTTL)
}

// Verify parses an access token.
func (t *Tokens) Verify(token string) (*Claims, error) {
	return t.parse(token, purposeAccess)
}

// VerifyEmailToken parses an email confirmation token.
func (t *Tokens) VerifyEmailToken(token string) (*Claims, error) {
	return t.parse(token, purposeVerifyEmail)
}

func (t *Tokens) sign(userID int, email, purpose string, ttl time.Duration) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(tokenStr, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Purpose != purpose {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
