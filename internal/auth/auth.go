// Package auth issues and verifies the signed identity tokens clients carry
// into the websocket endpoint. Registration and password flows live outside
// this service; a valid token is the whole identity story here.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the authenticated player behind a connection.
type Identity struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// IssueGuestToken mints an identity for a display name. Player IDs are random
// so two guests with the same name stay distinct in stats.
func IssueGuestToken(secret, name string) (string, Identity, error) {
	idBytes := make([]byte, 8)
	rand.Read(idBytes)
	ident := Identity{PlayerID: "p_" + hex.EncodeToString(idBytes), Name: name}

	claims := jwt.MapClaims{
		"player_id": ident.PlayerID,
		"name":      ident.Name,
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", Identity{}, err
	}
	return signed, ident, nil
}

// ParseToken validates a bearer token and extracts the identity.
func ParseToken(secret, token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token")
	}
	playerID, ok := claims["player_id"].(string)
	if !ok || playerID == "" {
		return Identity{}, fmt.Errorf("invalid token")
	}
	name, _ := claims["name"].(string)
	return Identity{PlayerID: playerID, Name: name}, nil
}
