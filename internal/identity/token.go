package identity

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/peterbourgon/diskv/v3"
)

const (
	tokenKey = "session"
	issuer   = "kinboard"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenCache keeps the signed-in user's token between runs.
type TokenCache interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// DiskCache is a TokenCache on disk.
type DiskCache struct {
	d *diskv.Diskv
}

func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return nil },
		CacheSizeMax: 64 * 1024,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})}
}

// Load returns "" when no token is cached.
func (c *DiskCache) Load() (string, error) {
	if !c.d.Has(tokenKey) {
		return "", nil
	}
	b, err := c.d.Read(tokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(b), nil
}

func (c *DiskCache) Save(token string) error {
	if err := c.d.Write(tokenKey, []byte(token)); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (c *DiskCache) Clear() error {
	if err := c.d.Erase(tokenKey); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("erase token: %w", err)
	}
	return nil
}

type claims struct {
	jwt.RegisteredClaims
}

type tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t tokens) issue(userID string) (string, error) {
	now := t.now()
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// verify returns the user id the token was issued to.
func (t tokens) verify(token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case c.Subject == "":
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
