package s3

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7/pkg/signer"
)

// Authorizer attaches credential material to store requests.
type Authorizer interface {
	// AuthorizePath verifies that the credential covers the named array
	// or chunk, before any request is built. This fails obviously
	// unauthorised operations without a round trip.
	AuthorizePath(name string) error

	// AuthorizeRequest prepares an outgoing request. It runs after all
	// other headers are set, so signing schemes cover the final request.
	AuthorizeRequest(req *http.Request) error
}

// NoAuth leaves requests untouched, for use against open servers.
type NoAuth struct{}

func (NoAuth) AuthorizePath(string) error           { return nil }
func (NoAuth) AuthorizeRequest(*http.Request) error { return nil }

// Claims is the authorisation payload of a bearer token.
type Claims struct {
	// Prefixes lists the array name prefixes the token grants access to.
	// Nil means the token carries no prefix claim at all; an empty list
	// authorises no paths.
	Prefixes []string `json:"prefix"`

	// ExpiresAt is the expiry time in Unix seconds, zero for no expiry.
	ExpiresAt int64 `json:"exp"`
}

// TokenDecoder extracts the claims of a bearer token.
type TokenDecoder func(token string) (Claims, error)

// DecodeUnverified extracts the claims of a JWT without checking its
// signature. The server verifies the token; the client only reads the
// claims to reject requests the token cannot possibly authorise.
func DecodeUnverified(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, authFailedf("token is not a compact JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, authFailedf("token payload is not base64url: %v", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, authFailedf("token payload is not a JSON object: %v", err)
	}
	return claims, nil
}

// BearerAuth presents a bearer token on every request and fails
// operations its claims cannot authorise before any request is sent.
type BearerAuth struct {
	token  string
	claims Claims
}

// NewBearerAuth decodes and validates a bearer token. A nil decoder
// treats the token as a JWT and decodes it without signature
// verification. An expired or undecodable token, or one that carries no
// prefix claim, fails immediately with ErrAuthorisationFailed.
func NewBearerAuth(token string, decode TokenDecoder) (*BearerAuth, error) {
	if decode == nil {
		decode = DecodeUnverified
	}
	claims, err := decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Prefixes == nil {
		return nil, authFailedf("token carries no prefix claim")
	}
	a := &BearerAuth{token: token, claims: claims}
	if err := a.checkExpiry(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *BearerAuth) checkExpiry() error {
	if a.claims.ExpiresAt != 0 && time.Now().Unix() >= a.claims.ExpiresAt {
		return authFailedf("token expired at %s",
			time.Unix(a.claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}
	return nil
}

// AuthorizePath implements Authorizer.
func (a *BearerAuth) AuthorizePath(name string) error {
	if err := a.checkExpiry(); err != nil {
		return err
	}
	trimmed := strings.TrimLeft(name, "/")
	for _, prefix := range a.claims.Prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return nil
		}
	}
	return authFailedf("token does not authorise %q", name)
}

// AuthorizeRequest implements Authorizer.
func (a *BearerAuth) AuthorizeRequest(req *http.Request) error {
	if err := a.checkExpiry(); err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}

// SignedAuth signs every request with AWS signature version 2, the
// scheme RADOS Gateway and older S3 deployments accept.
type SignedAuth struct {
	accessKey string
	secretKey string
}

// NewSignedAuth returns an Authorizer signing requests with the given
// key pair.
func NewSignedAuth(accessKey, secretKey string) *SignedAuth {
	return &SignedAuth{accessKey: accessKey, secretKey: secretKey}
}

// AuthorizePath implements Authorizer. Signing credentials are not
// path-scoped, so every path passes.
func (a *SignedAuth) AuthorizePath(string) error { return nil }

// AuthorizeRequest implements Authorizer.
func (a *SignedAuth) AuthorizeRequest(req *http.Request) error {
	*req = *signer.SignV2(*req, a.accessKey, a.secretKey, false)
	return nil
}
