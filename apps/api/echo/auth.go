package echoapi

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/confradar/core"
)

const (
	authScheme       = "Bearer"
	contextClaimsKey = "claims"
)

// Claims are the identity claims read from the caller's token.
// The token is verified by the conference API, never here.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (c Claims) person() core.Person {
	return core.Person{ID: c.Subject, Username: c.Username, Email: c.Email}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get(echo.HeaderAuthorization)
	l := len(authScheme)
	if len(auth) > l+1 && strings.EqualFold(auth[:l], authScheme) && auth[l] == ' ' {
		return strings.TrimSpace(auth[l+1:])
	}
	return ""
}

func parseClaims(token string) (Claims, error) {
	var claims Claims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, bool) {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	return claims, ok
}
