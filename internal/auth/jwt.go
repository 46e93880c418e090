package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baharkarakas/taskboard/internal/models"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller. Owner scoping derives from UserID only.
type Principal struct {
	UserID string
	Role   models.Role
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Type   string `json:"typ"` // "access" | "refresh"
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// GeneratePair issues an access and a refresh token for the user.
func (tm *TokenManager) GeneratePair(userID string, role models.Role) (TokenPair, error) {
	now := tm.now()
	access, err := tm.sign(userID, role, typeAccess, now, tm.accessTTL, tm.accessSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := tm.sign(userID, role, typeRefresh, now, tm.refreshTTL, tm.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: now.Add(tm.accessTTL)}, nil
}

func (tm *TokenManager) sign(userID string, role models.Role, typ string, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAccess accepts only access tokens; refresh tokens are rejected.
func (tm *TokenManager) ParseAccess(tokenStr string) (Principal, error) {
	return tm.parse(tokenStr, typeAccess, tm.accessSecret)
}

func (tm *TokenManager) ParseRefresh(tokenStr string) (Principal, error) {
	return tm.parse(tokenStr, typeRefresh, tm.refreshSecret)
}

func (tm *TokenManager) parse(tokenStr, typ string, secret []byte) (Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || claims.Type != typ || claims.UserID == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.UserID, Role: models.Role(claims.Role)}, nil
}
