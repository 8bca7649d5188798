package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jademcosta/logpig/pkg/domain"
)

// CredentialsResolver checks that the AWS chain (static keys, env, shared config, instance role)
// yields usable keys.
type CredentialsResolver struct {
	provider aws.CredentialsProvider
}

func NewCredentialsResolver(provider aws.CredentialsProvider) *CredentialsResolver {
	return &CredentialsResolver{provider: provider}
}

func (r *CredentialsResolver) Resolve(ctx context.Context) error {
	if r.provider == nil {
		return fmt.Errorf("%w: no credentials provider configured", domain.ErrAuthentication)
	}

	creds, err := r.provider.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	if !creds.HasKeys() {
		return fmt.Errorf("%w: %w", domain.ErrAuthentication, errors.New("resolved credentials have no keys"))
	}
	return nil
}
