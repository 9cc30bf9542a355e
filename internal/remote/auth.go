package remote

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"github.com/driftbase/syncmw/internal/syncerr"
)

// StaticTokenSource wraps an opaque bearer credential in the remote
// TokenSource interface. The sync engine's remote store contract has
// no device-code or refresh-token flow of its own; the credential is
// opaque to the middleware - a richer OAuth2 flow
// can be dropped in later by implementing TokenSource differently,
// without touching HTTPClient.
type StaticTokenSource struct {
	src oauth2.TokenSource
}

// NewStaticTokenSource builds a TokenSource from a literal credential
// string.
func NewStaticTokenSource(credential string) *StaticTokenSource {
	return &StaticTokenSource{
		src: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential}),
	}
}

func (s *StaticTokenSource) Token() (string, error) {
	tok, err := s.src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// CredentialFromEnv resolves the opaque credential indirectly via the
// environment variable named by envVar (the config's CREDENTIAL_ENV
// setting), so the literal secret never appears in a config file. A
// missing setting or variable is a syncerr.Auth with RequiresRefresh
// false.
func CredentialFromEnv(envVar string) (string, error) {
	if envVar == "" {
		return "", &syncerr.Auth{RequiresRefresh: false, Err: fmt.Errorf("remote: credential_env is not configured")}
	}
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return "", &syncerr.Auth{RequiresRefresh: false, Err: fmt.Errorf("remote: environment variable %q is not set", envVar)}
	}
	return v, nil
}

// NewTokenSourceFromEnv is a convenience constructor combining
// CredentialFromEnv and NewStaticTokenSource for the common case.
func NewTokenSourceFromEnv(ctx context.Context, envVar string) (*StaticTokenSource, error) {
	cred, err := CredentialFromEnv(envVar)
	if err != nil {
		return nil, err
	}
	return NewStaticTokenSource(cred), nil
}
