package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT payload accepted by the authoring API. UserID becomes
// the actor recorded in schema history.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}
