package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// ParseJWTClaims decodes the payload segment of a JWT without verifying the
// signature. The relay only needs the account-id claim, not trust in it.
func ParseJWTClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidJWT
	}
	payload := parts[1]
	// Add base64url padding
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	var claims map[string]any
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DeriveAccountID extracts the backend account id from an access token's
// auth claim. Returns "" when the claim is absent.
func DeriveAccountID(accessToken string) string {
	claims, err := ParseJWTClaims(accessToken)
	if err != nil {
		return ""
	}
	authObj, _ := claims["https://api.openai.com/auth"].(map[string]any)
	if authObj == nil {
		return ""
	}
	id, _ := authObj["chatgpt_account_id"].(string)
	return id
}
