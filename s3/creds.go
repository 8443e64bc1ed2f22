package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadCredentials resolves a signing key pair from the default AWS
// credential chain: environment variables, shared config and credentials
// files, SSO and instance metadata. profile selects a shared-config
// profile; the empty string uses the default.
//
//	creds, err := s3.LoadCredentials(ctx, "")
//	store, err := s3.New(endpoint,
//	    s3.WithCredentials(creds.AccessKeyID, creds.SecretAccessKey))
func LoadCredentials(ctx context.Context, profile string) (aws.Credentials, error) {
	var optFns []func(*config.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Credentials{}, authFailedf("loading AWS config: %v", err)
	}
	if cfg.Credentials == nil {
		return aws.Credentials{}, authFailedf("no AWS credentials configured")
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, authFailedf("resolving AWS credentials: %v", err)
	}
	return creds, nil
}
