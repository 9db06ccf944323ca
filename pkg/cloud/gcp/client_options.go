package gcp

import (
	"google.golang.org/api/option"
)

// ClientOptionsConfiguration contains the options that are used to
// connect to Google Cloud services.
type ClientOptionsConfiguration struct {
	// Path of a service account key file. When empty, application
	// default credentials are used.
	CredentialsFile string `json:"credentialsFile"`
	// Alternative endpoint, such as one of a storage emulator.
	// Authentication is disabled when set.
	Endpoint string `json:"endpoint"`
}

// NewClientOptionsFromConfiguration creates a list of Google Cloud SDK
// client options based on options specified in a configuration message.
// The resulting client options can be used to access GCP services such
// as GCS.
func NewClientOptionsFromConfiguration(configuration *ClientOptionsConfiguration) []option.ClientOption {
	if configuration == nil {
		return nil
	}
	var clientOptions []option.ClientOption
	if configuration.Endpoint != "" {
		clientOptions = append(clientOptions, option.WithEndpoint(configuration.Endpoint), option.WithoutAuthentication())
	} else if configuration.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(configuration.CredentialsFile))
	}
	return clientOptions
}
