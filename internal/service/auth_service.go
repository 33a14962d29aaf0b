package service

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-event-platform/internal/model"
	"go-event-platform/pkg/apierror"
)

// AuthService validates bearer tokens issued by the identity provider. It
// shares the provider's HMAC secret.
type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(jwtSecret string, accessTTL time.Duration) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret), accessTTL: accessTTL}
}

func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.Unauthorized("invalid token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, apierror.Unauthorized("invalid token type")
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.TenantID, _ = claimsMap["tenant_id"].(string)
	claims.Name, _ = claimsMap["name"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, apierror.Unauthorized("invalid token subject")
	}
	if claims.TenantID == "" && !strings.EqualFold(claims.Role, model.RoleSuperAdmin) {
		return nil, apierror.Unauthorized("token carries no tenant")
	}

	return claims, nil
}

// IssueAccessToken signs an access token for claims. It backs service-to-service
// calls and tests; end users receive tokens from the identity provider.
func (s *AuthService) IssueAccessToken(claims model.AuthClaims) (string, error) {
	now := time.Now().UTC()
	jti := claims.TokenID
	if jti == "" {
		jti = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       claims.UserID,
		"tenant_id": claims.TenantID,
		"name":      claims.Name,
		"role":      claims.Role,
		"typ":       "access",
		"jti":       jti,
		"iat":       now.Unix(),
		"exp":       now.Add(s.accessTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}
