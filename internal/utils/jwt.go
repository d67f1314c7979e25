package utils // package utils provides helper functions for token issuing and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Sentinel errors returned by VerifyAccessToken. Callers map these to
// distinguishable 401 responses: an expired token tells the client to
// re-authenticate, while a malformed one is rejected outright.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessToken represents a signed JWT along with its expiry. Access tokens
// are stateless: nothing is stored server-side, so a token stays usable
// until it expires or the subject's account is deactivated.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenClaims holds the identity asserted by a verified access token. Role is
// a snapshot taken at issuance time; the account's active flag is re-checked
// against storage on every authenticated request.
type TokenClaims struct {
	UserID uint64
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT binding a user ID and role.
// The JWT carries the standard claims: subject (sub), role, expiration (exp)
// and issued at (iat).
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a raw JWT string. It returns
// ErrTokenExpired when the token's exp claim has passed and ErrTokenInvalid
// for every other failure (bad signature, wrong algorithm, garbage input).
func VerifyAccessToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Only HMAC is acceptable; a token claiming another algorithm is forged.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrTokenInvalid
	}
	var out TokenClaims
	sub, ok := claims["sub"].(float64) // numeric JSON claims decode as float64
	if !ok {
		return TokenClaims{}, ErrTokenInvalid
	}
	out.UserID = uint64(sub)
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return TokenClaims{}, ErrTokenInvalid
	}
	out.Role = role
	return out, nil
}
