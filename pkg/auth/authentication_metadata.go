package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.opentelemetry.io/otel/attribute"
)

// AuthenticationMetadata contains information on the authenticated
// user that is performing the current operation. It is stored as a
// JSON-like value, so that it can be matched against by JMESPath
// expressions.
//
// Two keys have a special meaning:
//
//   - "public": a value that is safe to display in logs. It is used to
//     identify the actor in audit records of Action Cache writes.
//   - "tracingAttributes": a map of scalar values that is added to
//     OpenTelemetry spans.
type AuthenticationMetadata struct {
	raw               map[string]any
	tracingAttributes []attribute.KeyValue
}

// NewAuthenticationMetadataFromRaw creates a new AuthenticationMetadata
// object from a JSON-like value, such as the claims of a JSON Web
// Token. The value is normalized by converting it to JSON and back.
func NewAuthenticationMetadataFromRaw(metadataRaw any) (*AuthenticationMetadata, error) {
	metadataJSON, err := json.Marshal(metadataRaw)
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to convert raw authentication metadata to JSON")
	}
	var raw map[string]any
	if err := json.Unmarshal(metadataJSON, &raw); err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Authentication metadata is not a JSON object")
	}

	am := &AuthenticationMetadata{raw: raw}
	if attributesRaw, ok := raw["tracingAttributes"]; ok {
		attributes, ok := attributesRaw.(map[string]any)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "Tracing attributes are not a JSON object")
		}
		keys := make([]string, 0, len(attributes))
		for key := range attributes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			name := "auth." + key
			switch value := attributes[key].(type) {
			case bool:
				am.tracingAttributes = append(am.tracingAttributes, attribute.Bool(name, value))
			case float64:
				am.tracingAttributes = append(am.tracingAttributes, attribute.Float64(name, value))
			case string:
				am.tracingAttributes = append(am.tracingAttributes, attribute.String(name, value))
			default:
				return nil, status.Errorf(codes.InvalidArgument, "Tracing attribute %#v has an unsupported type", key)
			}
		}
	}
	return am, nil
}

// MustNewAuthenticationMetadataFromRaw is identical to
// NewAuthenticationMetadataFromRaw(), except that it panics upon
// failure. This method is provided for testing.
func MustNewAuthenticationMetadataFromRaw(metadataRaw any) *AuthenticationMetadata {
	authenticationMetadata, err := NewAuthenticationMetadataFromRaw(metadataRaw)
	if err != nil {
		panic(err)
	}
	return authenticationMetadata
}

// GetRaw returns the JSON-like value that was used to construct the
// AuthenticationMetadata.
func (am *AuthenticationMetadata) GetRaw() map[string]any {
	return am.raw
}

// GetPublic returns a string representation of the part of the
// metadata that is safe to display as part of logs. The boolean return
// value is false if no such data is present.
func (am *AuthenticationMetadata) GetPublic() (string, bool) {
	public, ok := am.raw["public"]
	if !ok {
		return "", false
	}
	if s, ok := public.(string); ok {
		return s, true
	}
	publicJSON, err := json.Marshal(public)
	if err != nil {
		return fmt.Sprint(public), true
	}
	return string(publicJSON), true
}

// GetTracingAttributes returns OpenTelemetry tracing attributes that
// can be added to spans.
func (am *AuthenticationMetadata) GetTracingAttributes() []attribute.KeyValue {
	return am.tracingAttributes
}

type authenticationMetadataKey struct{}

var defaultAuthenticationMetadata AuthenticationMetadata

// NewContextWithAuthenticationMetadata creates a new Context object
// that has AuthenticationMetadata attached to it.
func NewContextWithAuthenticationMetadata(ctx context.Context, authenticationMetadata *AuthenticationMetadata) context.Context {
	return context.WithValue(ctx, authenticationMetadataKey{}, authenticationMetadata)
}

// AuthenticationMetadataFromContext reobtains the
// AuthenticationMetadata that was attached to the Context object.
//
// If the Context object contains no metadata, a default instance
// corresponding to the empty metadata is returned.
func AuthenticationMetadataFromContext(ctx context.Context) *AuthenticationMetadata {
	if value := ctx.Value(authenticationMetadataKey{}); value != nil {
		return value.(*AuthenticationMetadata)
	}
	return &defaultAuthenticationMetadata
}
