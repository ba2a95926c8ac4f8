package api

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
)

const authRealm = `Basic realm="Toggler API"`

// credentials holds the configured login. A password starting with "$2" is
// treated as a bcrypt hash.
type credentials struct {
	username string
	password string
	hashed   bool
}

func newCredentials(username, password string) credentials {
	return credentials{
		username: username,
		password: password,
		hashed:   strings.HasPrefix(password, "$2"),
	}
}

func (c credentials) match(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	var passOK bool
	if c.hashed {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.password), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
	}
	return userOK && passOK
}

// basicAuthMiddleware rejects requests to secured operations without valid
// credentials. EventSource cannot set headers, so an "auth" query parameter
// holding base64 "user:pass" is accepted as well.
func (s *Server) basicAuthMiddleware(creds credentials) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ctx.Query("auth")
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		}
		if encoded == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if !creds.match(username, password) {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}
