package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService emite y valida los tokens de sesion del API.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// Claims transporta el id de sesion dentro del token.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "cinematch-llm",
	}
}

// GenerateToken firma un token para la sesion dada; su vida util acompana al
// TTL de la sesion en el store.
func (s *JWTService) GenerateToken(sessionID string) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(sessionID) == "" {
		return "", ErrJWTInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken valida firma, expiracion e issuer, y devuelve las claims.
func (s *JWTService) ParseToken(tokenString string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}

	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}

	if strings.TrimSpace(claims.SessionID) == "" || claims.Subject != claims.SessionID {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(claims.Issuer) != s.issuer {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}
