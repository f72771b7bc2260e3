// Package auth signs editor session descriptors and verifies the tokens the
// document server attaches to its callbacks. Both sides share one HS256 secret.
package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// User is the caller identity embedded in the editor token.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// EditorClaims is the payload the document server expects in the editor
// configuration token.
type EditorClaims struct {
	jwt.RegisteredClaims
	User         User                  `json:"user"`
	Document     models.DocumentConfig `json:"document"`
	EditorConfig models.EditorConfig   `json:"editorConfig"`
}

// GenerateEditorToken signs the document and editor sections of d for user.
func GenerateEditorToken(user User, d *models.Descriptor, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, EditorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		User:         user,
		Document:     d.Document,
		EditorConfig: d.EditorConfig,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseEditorToken verifies tokenString and returns its claims.
func ParseEditorToken(tokenString string, secretKey []byte) (*EditorClaims, error) {
	claims := &EditorClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// callbackClaims keeps the raw token body. Older document servers wrap the
// callback fields in a "payload" object; newer ones put them at the top level.
type callbackClaims struct {
	jwt.RegisteredClaims
	Payload json.RawMessage `json:"payload,omitempty"`
	raw     map[string]any
}

func (c *callbackClaims) UnmarshalJSON(b []byte) error {
	type plain callbackClaims
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = callbackClaims(p)
	c.raw = raw
	return nil
}

// ParseCallbackToken verifies a callback token and returns the JSON body of
// the callback it carries.
func ParseCallbackToken(tokenString string, secretKey []byte) ([]byte, error) {
	claims := &callbackClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}

	if len(claims.Payload) > 0 && string(claims.Payload) != "null" {
		return claims.Payload, nil
	}

	for _, k := range []string{"exp", "iat", "nbf", "iss", "aud", "sub", "jti"} {
		delete(claims.raw, k)
	}
	return json.Marshal(claims.raw)
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}
