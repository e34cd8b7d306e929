package httpclient

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"net/http"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/sparqlkit/errors"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthCustom uses a custom authentication function.
	AuthCustom
	// AuthJWT signs a short-lived bearer token for every request.
	AuthJWT
)

// AuthConfig configures request authentication. Authentication is applied
// once per request; a rejected credential surfaces as a 401/403 client error
// and is never retried here.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Key is the API key value (AuthAPIKey).
	Key string
	// In places the API key: "header" (default) or "query" (AuthAPIKey).
	In string
	// Name is the header or query parameter name (AuthAPIKey). Defaults to "X-API-Key".
	Name string
	// Apply is a custom function to modify the request (AuthCustom).
	Apply func(*http.Request)
	// JWT configures token minting (AuthJWT).
	JWT *JWTConfig
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// JWTAuth creates an auth config that mints a signed bearer token per request.
func JWTAuth(cfg JWTConfig) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, JWT: &cfg}
}

// Validate checks that the fields required by Type are present.
func (a *AuthConfig) Validate() error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		if a.Token == "" {
			return errors.InvalidRequest("auth: bearer token is required")
		}
	case AuthAPIKey:
		if a.Key == "" {
			return errors.InvalidRequest("auth: api key is required")
		}
	case AuthCustom:
		if a.Apply == nil {
			return errors.InvalidRequest("auth: custom auth needs an apply function")
		}
	case AuthJWT:
		if a.JWT == nil {
			return errors.InvalidRequest("auth: jwt settings are required")
		}
		return a.JWT.validate()
	}
	return nil
}

// apply applies authentication to an HTTP request.
func (a *AuthConfig) apply(req *http.Request) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			q := req.URL.Query()
			q.Set(name, a.Key)
			req.URL.RawQuery = q.Encode()
		} else {
			req.Header.Set(name, a.Key)
		}
	case AuthCustom:
		if a.Apply != nil {
			a.Apply(req)
		}
	case AuthJWT:
		token, err := a.JWT.Sign(time.Now())
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// JWTConfig configures tokens minted for AuthJWT.
type JWTConfig struct {
	// Method is the signing algorithm: HS256 (default), HS384, HS512,
	// RS256, RS384, RS512, ES256, ES384 or ES512.
	Method string
	// Secret is the HMAC key for HS* methods.
	Secret string
	// PrivateKey is the *rsa.PrivateKey or *ecdsa.PrivateKey for RS*/ES* methods.
	PrivateKey any
	// Issuer is the "iss" claim.
	Issuer string
	// Subject is the "sub" claim.
	Subject string
	// Audience is the "aud" claim.
	Audience []string
	// TTL is the token lifetime. Defaults to one minute.
	TTL time.Duration
	// Claims are extra claims added to every token.
	Claims map[string]any
}

const defaultJWTTTL = time.Minute

// Sign returns a token issued at now.
func (c *JWTConfig) Sign(now time.Time) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultJWTTTL
	}
	claims := gojwt.MapClaims{}
	for k, v := range c.Claims {
		claims[k] = v
	}
	claims["iat"] = gojwt.NewNumericDate(now)
	claims["exp"] = gojwt.NewNumericDate(now.Add(ttl))
	claims["jti"] = uuid.NewString()
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	if c.Subject != "" {
		claims["sub"] = c.Subject
	}
	if len(c.Audience) > 0 {
		claims["aud"] = c.Audience
	}
	signed, err := gojwt.NewWithClaims(c.signingMethod(), claims).SignedString(c.signKey())
	if err != nil {
		return "", errors.InvalidRequest("auth: sign jwt").WithCause(err)
	}
	return signed, nil
}

func (c *JWTConfig) validate() error {
	switch c.methodName() {
	case "HS256", "HS384", "HS512":
		if c.Secret == "" {
			return errors.InvalidRequest("auth: jwt secret is required for HMAC methods")
		}
	case "RS256", "RS384", "RS512":
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
			return errors.InvalidRequest("auth: jwt RSA methods need an *rsa.PrivateKey")
		}
	case "ES256", "ES384", "ES512":
		if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
			return errors.InvalidRequest("auth: jwt ECDSA methods need an *ecdsa.PrivateKey")
		}
	default:
		return errors.InvalidRequest("auth: unsupported jwt method " + c.Method)
	}
	return nil
}

func (c *JWTConfig) methodName() string {
	if c.Method == "" {
		return "HS256"
	}
	return c.Method
}

func (c *JWTConfig) signingMethod() gojwt.SigningMethod {
	if m := gojwt.GetSigningMethod(c.methodName()); m != nil {
		return m
	}
	return gojwt.SigningMethodHS256
}

func (c *JWTConfig) signKey() any {
	switch c.methodName() {
	case "HS256", "HS384", "HS512":
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}
