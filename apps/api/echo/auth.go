package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
	"github.com/conectaebd/backend/core/tenant"
	"github.com/conectaebd/backend/core/user"
)

const contextTokenKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	ID           int    `json:"id"`
	Role         string `json:"role"`
	ChurchID     int    `json:"church_id,omitempty"`
}

func (c Claims) Principal() tenant.Principal {
	return tenant.Principal{UserID: c.ID, Role: c.Role, ChurchID: c.ChurchID}
}

// newJWTConfig returns the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of a session bound to p.
// origIat carries the issue time of the first token of the session across refreshes.
func NewClaims(conf *core.Config, p tenant.Principal, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(p.UserID),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		ID:           p.UserID,
		Role:         p.Role,
		ChurchID:     p.ChurchID,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (tenant.Principal, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return tenant.Principal{}, err
	}
	return claims.Principal(), nil
}

// refreshToken issues a new token for the same session, as long as the user still exists,
// is still allowed in and the session is younger than the refresh limit.
func refreshToken(ctx echo.Context, conf *core.Config, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.ID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsMaster() && !usr.Authorized {
		return "", errAccountNotAuthorized
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	p := tenant.Principal{UserID: usr.ID, Role: usr.Role, ChurchID: claims.ChurchID}
	if usr.ChurchID.Valid {
		p.ChurchID = usr.ChurchID.Int
	}
	token, err := GenerateToken(conf, NewClaims(conf, p, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
