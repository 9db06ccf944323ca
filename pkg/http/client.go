package http

import (
	"context"
	"net/http"

	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2ClientCredentialsConfiguration contains the options for
// obtaining access tokens through the OAuth 2.0 client credentials
// flow.
type OAuth2ClientCredentialsConfiguration struct {
	TokenUrl     string   `json:"tokenUrl"`
	ClientId     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	Scopes       []string `json:"scopes"`
}

// ClientConfiguration contains the options of a HTTP client.
type ClientConfiguration struct {
	// Headers added to every outgoing request, such as an
	// "Authorization" header carrying a bearer token.
	AddHeaders []bb_grpc.HeaderValues `json:"addHeaders"`
	// If set, requests carry an access token obtained from an
	// OAuth 2.0 authorization server.
	Oauth2ClientCredentials *OAuth2ClientCredentialsConfiguration `json:"oauth2ClientCredentials"`
}

// NewRoundTripperFromConfiguration creates a new HTTP round tripper
// based on options specified in a configuration message. The name is
// used to label Prometheus metrics.
func NewRoundTripperFromConfiguration(configuration *ClientConfiguration, name string) http.RoundTripper {
	var roundTripper http.RoundTripper = http.DefaultTransport
	if configuration != nil {
		if len(configuration.AddHeaders) > 0 {
			roundTripper = NewHeaderAddingRoundTripper(roundTripper, configuration.AddHeaders)
		}
		if clientCredentials := configuration.Oauth2ClientCredentials; clientCredentials != nil {
			// Token requests are sent without any of the
			// headers that are added to ordinary requests.
			tokenSource := (&clientcredentials.Config{
				ClientID:     clientCredentials.ClientId,
				ClientSecret: clientCredentials.ClientSecret,
				TokenURL:     clientCredentials.TokenUrl,
				Scopes:       clientCredentials.Scopes,
			}).TokenSource(context.Background())
			roundTripper = &oauth2.Transport{
				Source: tokenSource,
				Base:   roundTripper,
			}
		}
	}
	return NewMetricsRoundTripper(roundTripper, name)
}
