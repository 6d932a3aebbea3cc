package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/goevery/realtime/internal/ierr"
	"github.com/goevery/realtime/internal/persistence"
	"github.com/golang-jwt/jwt/v5"
)

type Authentication struct {
	Subject string
	UserId  string
	IsAdmin bool
}

func (a *Authentication) IsUser() bool {
	return a.UserId != "" && !a.IsAdmin
}

type contextKey string

const authenticationKey contextKey = "authentication"

func WithAuthentication(ctx context.Context, auth *Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey, auth)
}

func AuthenticationFromContext(ctx context.Context) (*Authentication, bool) {
	auth, ok := ctx.Value(authenticationKey).(*Authentication)
	return auth, ok
}

// UserResolver maps the token subject (the account email) to a user id.
type UserResolver interface {
	FindUserIdByEmail(ctx context.Context, email string) (string, error)
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	jwtParser *jwt.Parser
	resolver  UserResolver
}

// NewAuthenticator builds an authenticator for HS256 access tokens. With a nil
// resolver the subject claim is taken as the user id.
func NewAuthenticator(secret string, apiKeys []string, resolver UserResolver) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
	)

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		jwtParser: jwtParser,
		resolver:  resolver,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

func (a *Authenticator) AuthenticateJWT(ctx context.Context, tokenString string) (*Authentication, error) {
	if tokenString == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing token"))
	}

	claims := jwt.RegisteredClaims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
	}

	userId := subject
	if a.resolver != nil {
		userId, err = a.resolver.FindUserIdByEmail(ctx, subject)
		if errors.Is(err, persistence.ErrUserNotFound) {
			return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
		}
		if err != nil {
			return nil, ierr.New(ierr.ErrorCodeInternal, err)
		}
	}

	return &Authentication{
		Subject: subject,
		UserId:  userId,
		IsAdmin: false,
	}, nil
}

// VerifyIdentity resolves a handshake credential to the user id it belongs to.
func (a *Authenticator) VerifyIdentity(ctx context.Context, credential string) (string, error) {
	authentication, err := a.AuthenticateJWT(ctx, credential)
	if err != nil {
		return "", err
	}

	return authentication.UserId, nil
}

func (a *Authenticator) AuthenticateAPIKey(apiKey string) (*Authentication, error) {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return &Authentication{
				Subject: "api",
				IsAdmin: true,
			}, nil
		}
	}

	return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
