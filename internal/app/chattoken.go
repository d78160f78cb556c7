package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/circletalk/circletalk/internal/domain"
)

var ErrChatNotConfigured = errors.New("chat api key and secret are required")

// ChatTokens mints per-user tokens for the hosted chat transport. Chat
// messaging itself rides a separate connection; this service only signs the
// credential the client hands to it.
type ChatTokens struct {
	apiKey string
	secret []byte
	ttl    time.Duration
}

func NewChatTokens(apiKey, apiSecret string, ttl time.Duration) (*ChatTokens, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrChatNotConfigured
	}
	return &ChatTokens{apiKey: apiKey, secret: []byte(apiSecret), ttl: ttl}, nil
}

func (c *ChatTokens) APIKey() string { return c.apiKey }

func (c *ChatTokens) Mint(uid domain.UserID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": string(uid),
		"iat":     now.Unix(),
		"exp":     now.Add(c.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign chat token: %w", err)
	}
	return signed, nil
}

// Verify parses a minted token and returns the user it was issued to.
// Used by tests and by any future server-side chat hook.
func (c *ChatTokens) Verify(raw string) (domain.UserID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	uid, _ := claims["user_id"].(string)
	if uid == "" {
		return "", errors.New("token has no user_id")
	}
	return domain.UserID(uid), nil
}
