package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/buildbarn/bb-fleet/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StaticCredentialsConfiguration contains a fixed access key.
type StaticCredentialsConfiguration struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// AssumeRoleConfiguration causes requests to be made using temporary
// credentials of an IAM role, obtained through AWS STS.
type AssumeRoleConfiguration struct {
	RoleArn     string `json:"roleArn"`
	ExternalId  string `json:"externalId"`
	SessionName string `json:"sessionName"`
}

// SessionConfiguration contains the options that are used to connect
// to AWS services.
type SessionConfiguration struct {
	Region            string                          `json:"region"`
	Endpoint          string                          `json:"endpoint"`
	StaticCredentials *StaticCredentialsConfiguration `json:"staticCredentials"`
	AssumeRole        *AssumeRoleConfiguration        `json:"assumeRole"`
}

// NewConfigFromConfiguration creates a new AWS SDK config object based
// on options specified in a session configuration message. The
// resulting config object can be used to access AWS services such as
// S3.
func NewConfigFromConfiguration(configuration *SessionConfiguration) (aws.Config, error) {
	if configuration == nil {
		configuration = &SessionConfiguration{}
	}
	var loadOptions []func(*config.LoadOptions) error
	if region := configuration.Region; region != "" {
		loadOptions = append(loadOptions, config.WithRegion(region))
	}
	if staticCredentials := configuration.StaticCredentials; staticCredentials != nil {
		loadOptions = append(loadOptions,
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					staticCredentials.AccessKeyID,
					staticCredentials.SecretAccessKey,
					"")))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), loadOptions...)
	if err != nil {
		return aws.Config{}, util.StatusWrap(err, "Failed to load AWS configuration")
	}
	if endpoint := configuration.Endpoint; endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	if assumeRole := configuration.AssumeRole; assumeRole != nil {
		if assumeRole.RoleArn == "" {
			return aws.Config{}, status.Error(codes.InvalidArgument, "No role ARN provided")
		}
		// The base endpoint only applies to S3, so STS is
		// accessed through a copy of the configuration.
		stsConfig := cfg.Copy()
		stsConfig.BaseEndpoint = nil
		cfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(
				sts.NewFromConfig(stsConfig),
				assumeRole.RoleArn,
				func(options *stscreds.AssumeRoleOptions) {
					if externalID := assumeRole.ExternalId; externalID != "" {
						options.ExternalID = aws.String(externalID)
					}
					if sessionName := assumeRole.SessionName; sessionName != "" {
						options.RoleSessionName = sessionName
					}
				}))
	}
	return cfg, nil
}
