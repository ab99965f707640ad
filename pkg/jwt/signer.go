package jwt

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken         = errors.New("invalid token")
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
)

// Signer signs claim sets with the server's RSA key. It covers ID tokens and
// any other server-issued JWT.
type Signer struct {
	privateKey *rsa.PrivateKey
	keyID      string
	alg        string
}

// NewSigner parses a PEM-encoded RSA private key. alg must be one of
// RS256, RS384 or RS512.
func NewSigner(privateKeyPEM []byte, keyID, alg string) (*Signer, error) {
	if _, err := signingMethod(alg); err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		keyID:      keyID,
		alg:        alg,
	}, nil
}

// Alg returns the configured signature algorithm.
func (s *Signer) Alg() string {
	return s.alg
}

// PublicKey returns the RSA public key for the JWKS endpoint.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.privateKey.PublicKey
}

// Sign produces a compact JWT over the claim set.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	method, err := signingMethod(s.alg)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(method, claims)
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign claims: %w", err)
	}

	return signed, nil
}

// VerifyWithKeySet validates a compact JWT against a set of candidate public
// keys, restricted to the given allowed algorithms. Used for JWT client
// assertions and the jwt-bearer grant, where the keys belong to the client.
func VerifyWithKeySet(tokenString string, keys []*rsa.PublicKey, algs []string) (jwt.MapClaims, error) {
	if len(keys) == 0 {
		return nil, ErrInvalidToken
	}
	if len(algs) == 0 {
		algs = []string{"RS256", "RS384", "RS512"}
	}

	var lastErr error
	for _, key := range keys {
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, ErrInvalidSigningMethod
			}
			return key, nil
		}, jwt.WithValidMethods(algs))
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrInvalidToken, lastErr)
}

// DecodeUnverified parses a compact JWT without checking its signature. The
// jwt-bearer grant needs the sub claim before it can know which client's keys
// to verify against; the signature is always verified afterwards.
func DecodeUnverified(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return claims, nil
}

// ParseRSAPublicKeys parses a client's registered PEM-encoded public keys.
func ParseRSAPublicKeys(pems []string) ([]*rsa.PublicKey, error) {
	keys := make([]*rsa.PublicKey, 0, len(pems))
	for _, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// TokenHash computes the OIDC at_hash / c_hash value for a companion token:
// the left half of the hash implied by the signature algorithm's bit
// strength, base64url-encoded without padding.
func TokenHash(value, alg string) (string, error) {
	var h hash.Hash
	switch alg {
	case "RS256", "ES256", "PS256", "HS256":
		h = sha256.New()
	case "RS384", "ES384", "PS384", "HS384":
		h = sha512.New384()
	case "RS512", "ES512", "PS512", "HS512":
		h = sha512.New()
	default:
		return "", ErrUnsupportedAlgorithm
	}

	h.Write([]byte(value))
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2]), nil
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case "RS256":
		return jwt.SigningMethodRS256, nil
	case "RS384":
		return jwt.SigningMethodRS384, nil
	case "RS512":
		return jwt.SigningMethodRS512, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}
