package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrMissingClaim      = errors.New("token is missing a required claim")
)

// Identity is what a verified credential resolves to.
type Identity struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type AccessClaims struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Validate is picked up by jwt's validator after the registered claims are checked.
func (c AccessClaims) Validate() error {
	if c.UserID == 0 {
		return ErrMissingClaim
	}
	return nil
}

type Verifier struct {
	Secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{Secret: secret}
}

func (v *Verifier) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingCredential
	}

	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, ErrMissingClaim) {
			return Identity{}, ErrMissingClaim
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return Identity{}, ErrInvalidToken
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{UserID: claims.UserID, Role: role}, nil
}

type Issuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{Secret: secret, TTL: ttl, Now: time.Now}
}

func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	issuedAt := now()
	exp := issuedAt.Add(i.TTL)

	claims := AccessClaims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
