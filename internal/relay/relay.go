package relay

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"teleconsult-backend/pkg/config"
)

// Credentials grant one participant access to one room on a media
// relay server.
type Credentials struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// TokenIssuer mints per-participant room tokens for the media relay
// fleet. Every participant of a call gets their own token on the same
// relay server.
type TokenIssuer struct {
	servers []string
	secret  []byte
	ttl     time.Duration
}

func NewTokenIssuer(cfg config.RelayConfig) (*TokenIssuer, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no relay servers configured")
	}
	return &TokenIssuer{
		servers: cfg.Servers,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TokenTTL,
	}, nil
}

// PickServer selects the relay server a new call is hosted on.
func (i *TokenIssuer) PickServer() string {
	return i.servers[rand.Intn(len(i.servers))]
}

// Issue signs a room token binding peer to the call's room on server.
func (i *TokenIssuer) Issue(server string, callID, peerID uuid.UUID) (Credentials, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"room": callID.String(),
		"peer": peerID.String(),
		"iat":  now.Unix(),
		"exp":  now.Add(i.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Credentials{}, fmt.Errorf("sign relay token: %w", err)
	}
	return Credentials{URL: server, Token: token}, nil
}
