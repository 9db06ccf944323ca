package grpc

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	"github.com/buildbarn/bb-fleet/pkg/clock"
	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// JWTAuthenticationPolicy contains the keys and expected claims of
// JSON Web Tokens that are accepted by the JWT authenticator.
type JWTAuthenticationPolicy struct {
	// Inline JSON Web Key Set containing the public keys that may
	// be used to sign tokens.
	JWKS json.RawMessage `json:"jwks"`
	// Path of a file containing a JSON Web Key Set. Used if no
	// inline key set is provided.
	JWKSPath string `json:"jwksPath"`
	// If set, the "iss" claim must be equal to this value.
	Issuer string `json:"issuer"`
	// If set, the "aud" claim must contain this value.
	Audience string `json:"audience"`
}

func (p *JWTAuthenticationPolicy) getKeySet() (*jose.JSONWebKeySet, error) {
	data := []byte(p.JWKS)
	if len(data) == 0 {
		if p.JWKSPath == "" {
			return nil, status.Error(codes.InvalidArgument, "No JSON Web Key Set provided")
		}
		var err error
		data, err = os.ReadFile(p.JWKSPath)
		if err != nil {
			return nil, util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to read %#v", p.JWKSPath)
		}
	}
	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(data, &keySet); err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid JSON Web Key Set")
	}
	if len(keySet.Keys) == 0 {
		return nil, status.Error(codes.InvalidArgument, "JSON Web Key Set contains no keys")
	}
	for i, key := range keySet.Keys {
		if !key.Valid() || !key.IsPublic() {
			return nil, status.Errorf(codes.InvalidArgument, "Key at index %d is not a valid public key", i)
		}
	}
	return &keySet, nil
}

type jwtAuthenticator struct {
	keySet   *jose.JSONWebKeySet
	issuer   string
	audience string
	clock    clock.Clock
}

// NewJWTAuthenticator creates an Authenticator that only grants access
// in case a validly signed JWT (JSON Web Token) is passed as a Bearer
// token in the request's "authorization" header.
//
// The claims of the token are exposed as authentication metadata under
// the key "claims". The "sub" claim is used as the public part of the
// metadata, so that it can be used in audit logs.
func NewJWTAuthenticator(keySet *jose.JSONWebKeySet, issuer, audience string, clock clock.Clock) Authenticator {
	return &jwtAuthenticator{
		keySet:   keySet,
		issuer:   issuer,
		audience: audience,
		clock:    clock,
	}
}

func (a *jwtAuthenticator) validateToken(token string) (*auth.AuthenticationMetadata, error) {
	tok, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unauthenticated, "Failed to parse bearer token")
	}

	// Verify the signature.
	var claims jwt.Claims
	var allClaims map[string]any
	if err := tok.Claims(a.keySet, &claims, &allClaims); err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unauthenticated, "Invalid bearer token signature")
	}

	// Signature is valid. Validate the other claims.
	expected := jwt.Expected{
		Issuer: a.issuer,
		Time:   a.clock.Now(),
	}
	if a.audience != "" {
		expected.Audience = jwt.Audience{a.audience}
	}
	if err := claims.ValidateWithLeeway(expected, 0); err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unauthenticated, "Invalid bearer token claims")
	}

	raw := map[string]any{"claims": allClaims}
	if claims.Subject != "" {
		raw["public"] = claims.Subject
	}
	metadata, err := auth.NewAuthenticationMetadataFromRaw(raw)
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.Unauthenticated, "Failed to create authentication metadata")
	}
	return metadata, nil
}

func (a *jwtAuthenticator) Authenticate(ctx context.Context) (*auth.AuthenticationMetadata, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "Connection was not established using gRPC")
	}

	// Keys within the metadata are normalized to lowercase.
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Error(codes.Unauthenticated, "Missing authorization header")
	}

	var errs []string
	for _, authHeaderValue := range authHeaders {
		token, ok := strings.CutPrefix(authHeaderValue, "Bearer ")
		if !ok {
			// Non-bearer tokens may be intended for another
			// Authenticator.
			continue
		}
		metadata, err := a.validateToken(token)
		if err == nil {
			return metadata, nil
		}
		errs = append(errs, status.Convert(err).Message())
	}
	if len(errs) == 0 {
		return nil, status.Error(codes.Unauthenticated, "No bearer token provided")
	}
	return nil, status.Error(codes.Unauthenticated, strings.Join(errs, ", "))
}
