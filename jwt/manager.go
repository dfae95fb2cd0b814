package jwt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm for both token classes.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// TokenClass tags a token as either a short-lived access credential or a
// long-lived refresh credential. The tag is embedded in the claims and
// enforced on parse, so one class can never stand in for the other.
type TokenClass string

const (
	ClassAccess  TokenClass = "access"
	ClassRefresh TokenClass = "refresh"
)

// Config holds the signing material and lifetimes for the token service.
// Access and refresh tokens are signed with distinct keys so compromise of
// one family cannot forge the other; NewManager rejects equal keys.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod SigningMethod

	// HS256: shared secrets. Ed25519: private keys (raw or PEM); the public
	// halves may be supplied separately for verify-only deployments.
	AccessKey        []byte
	RefreshKey       []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte

	Issuer string
	Leeway time.Duration
}

// Manager issues and verifies the two token classes. It is stateless and
// safe for concurrent use after construction.
type Manager struct {
	config Config
}

// Claims is the decoded payload of a signed token.
type Claims struct {
	SubjectID string `json:"uid"`
	Email     string `json:"eml"`
	Class     string `json:"cls"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.AccessKey) == 0 || len(cfg.RefreshKey) == 0 {
			return nil, errors.New("hs256 requires access and refresh keys")
		}
		if bytes.Equal(cfg.AccessKey, cfg.RefreshKey) {
			return nil, errors.New("access and refresh signing keys must be distinct")
		}
	case MethodEd25519:
		accessPriv, err := parseEdPrivateKey(cfg.AccessKey)
		if err != nil {
			return nil, fmt.Errorf("access key: %w", err)
		}
		refreshPriv, err := parseEdPrivateKey(cfg.RefreshKey)
		if err != nil {
			return nil, fmt.Errorf("refresh key: %w", err)
		}
		if bytes.Equal(accessPriv, refreshPriv) {
			return nil, errors.New("access and refresh signing keys must be distinct")
		}
		if len(cfg.AccessPublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.AccessPublicKey); err != nil {
				return nil, fmt.Errorf("access public key: %w", err)
			}
		}
		if len(cfg.RefreshPublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.RefreshPublicKey); err != nil {
				return nil, fmt.Errorf("refresh public key: %w", err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess signs a short-lived access token for the subject.
func (j *Manager) CreateAccess(subjectID, email string) (string, error) {
	return j.create(ClassAccess, subjectID, email, j.config.AccessTTL)
}

// CreateRefresh signs a long-lived refresh token for the subject.
func (j *Manager) CreateRefresh(subjectID, email string) (string, error) {
	return j.create(ClassRefresh, subjectID, email, j.config.RefreshTTL)
}

func (j *Manager) create(class TokenClass, subjectID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SubjectID: subjectID,
		Email:     email,
		Class:     string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)

	signKey, err := j.getSignKey(class)
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// ParseAccess verifies an access token and returns its claims. Any failure
// (signature, structure, expiry, or class tag) yields an error, never a
// partially populated result.
func (j *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, ClassAccess)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (j *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, ClassRefresh)
}

func (j *Manager) parse(tokenStr string, class TokenClass) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.getVerifyKey(class)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Class != string(class) {
		return nil, fmt.Errorf("unexpected token class: %q", claims.Class)
	}

	return claims, nil
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) classKey(class TokenClass) []byte {
	if class == ClassRefresh {
		return j.config.RefreshKey
	}
	return j.config.AccessKey
}

func (j *Manager) getSignKey(class TokenClass) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.classKey(class), nil
	default:
		return parseEdPrivateKey(j.classKey(class))
	}
}

func (j *Manager) getVerifyKey(class TokenClass) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.classKey(class), nil
	default:
		pub := j.config.AccessPublicKey
		if class == ClassRefresh {
			pub = j.config.RefreshPublicKey
		}
		if len(pub) > 0 {
			return parseEdPublicKey(pub)
		}
		priv, err := parseEdPrivateKey(j.classKey(class))
		if err != nil {
			return nil, err
		}
		return priv.Public(), nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
