// Package bedrock signs upstream requests for AWS Bedrock providers.
//
// Bedrock does not accept a relayed client credential; requests are signed
// with SigV4 using the ambient AWS credential chain (env, shared config,
// IMDS). Providers flagged sigv4 in config skip the credential relay and
// go through here instead.
package bedrock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

const serviceName = "bedrock"

// Signer signs outbound requests with SigV4. The region is supplied per
// request, so one signer serves providers in any number of regions.
type Signer struct {
	creds  aws.CredentialsProvider
	signer *v4.Signer
}

// NewSigner resolves the default AWS credential chain. Returns an error
// when no credentials can be resolved; callers treat a nil signer as
// "bedrock not configured".
func NewSigner(ctx context.Context) (*Signer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("bedrock: no aws credentials: %w", err)
	}
	return &Signer{
		creds:  cfg.Credentials,
		signer: v4.NewSigner(),
	}, nil
}

// IsConfigured reports whether signing is available.
func (s *Signer) IsConfigured() bool {
	return s != nil && s.signer != nil
}

// SignRequest signs req in place over the given body bytes for the
// provider's region. The payload hash must match the body the transport
// will actually send, so the caller passes the final forward buffer.
func (s *Signer) SignRequest(ctx context.Context, req *http.Request, body []byte, region string) error {
	if region == "" {
		return fmt.Errorf("bedrock: region is required")
	}
	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("bedrock: retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	return s.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), serviceName, region, time.Now())
}
