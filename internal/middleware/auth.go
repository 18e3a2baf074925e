package middleware

import (
	"errors"
	"strings"

	jwtpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/jwt"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/roles"
	sessionpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
	ContextKeyClaims = "claims"
)

// ErrMissingToken means no usable bearer token was presented.
var ErrMissingToken = errors.New("authorization token is required")

// ErrRevoked means the token decoded fine but the stored user record no
// longer honors it (deactivated, version bumped, or gone).
var ErrRevoked = errors.New("token has been revoked")

// Validator is the session freshness checker. Constructed once in app.New and
// handed to every component that guards requests.
type Validator struct {
	db    *gorm.DB
	codec *jwtpkg.Codec
}

func NewValidator(db *gorm.DB, codec *jwtpkg.Codec) *Validator {
	return &Validator{db: db, codec: codec}
}

// Auth enforces the full freshness check: signature, expiry, required claims,
// and the stored is_active/token_version pair. Mandatory before any
// state-mutating or privacy-sensitive endpoint.
func (v *Validator) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Validate(extractToken(c))
		if err != nil {
			response.Unauthorized(c, unauthorizedMessage(err))
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// SignatureAuth only verifies the token itself (signature, expiry, claim
// shape) without consulting the store. Cheap tier for endpoints that just
// need to know who signed the request.
func (v *Validator) SignatureAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.DecodeClaims(extractToken(c))
		if err != nil {
			response.Unauthorized(c, unauthorizedMessage(err))
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the identity when a fresh token is present but never
// blocks the request.
func (v *Validator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := v.Validate(extractToken(c)); err == nil {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

// Validate runs the complete freshness protocol on a raw token.
func (v *Validator) Validate(rawToken string) (*jwtpkg.Claims, error) {
	claims, err := v.DecodeClaims(rawToken)
	if err != nil {
		return nil, err
	}

	status, err := sessionpkg.GetStatus(v.db, claims.UserID)
	if err != nil {
		if errors.Is(err, sessionpkg.ErrUserNotFound) {
			// Do not reveal whether the account exists.
			return nil, ErrRevoked
		}
		return nil, err
	}
	if !status.IsActive || status.TokenVersion != claims.TokenVersion {
		return nil, ErrRevoked
	}
	return claims, nil
}

// DecodeClaims is the signature-only tier: codec verification plus the
// required-claims check, no store lookup.
func (v *Validator) DecodeClaims(rawToken string) (*jwtpkg.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := v.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID == 0 || strings.TrimSpace(claims.Role) == "" {
		return nil, jwtpkg.ErrInvalid
	}
	return claims, nil
}

// RequireRoles is the authorization gate: valid session already established
// by Auth, role claim must be in the allowed set.
func RequireRoles(allowed ...roles.Role) gin.HandlerFunc {
	set := roles.NewSet(allowed...)
	return func(c *gin.Context) {
		if !set.Allows(CurrentRole(c)) {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *jwtpkg.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyRole, claims.Role)
	c.Set(ContextKeyClaims, claims)
}

// CurrentUserID extracts the authenticated user ID from context (0 if anonymous).
func CurrentUserID(c *gin.Context) uint {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(uint)
	return id
}

// CurrentRole extracts the authenticated role from context.
func CurrentRole(c *gin.Context) string {
	v, _ := c.Get(ContextKeyRole)
	role, _ := v.(string)
	return role
}

// CurrentClaims extracts the full claims from context.
func CurrentClaims(c *gin.Context) *jwtpkg.Claims {
	v, _ := c.Get(ContextKeyClaims)
	claims, _ := v.(*jwtpkg.Claims)
	return claims
}

// IsAuthenticated returns true if the request carries a validated identity.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != 0
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips the optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "Authorization header is missing"
	case errors.Is(err, jwtpkg.ErrExpired):
		return "Token is expired, please login again"
	case errors.Is(err, jwtpkg.ErrMalformed):
		return "Token is malformed"
	case errors.Is(err, ErrRevoked):
		return "Token has been revoked, please login again"
	default:
		return "Token is invalid"
	}
}
