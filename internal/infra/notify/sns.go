package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
)

// SMSSender delivers a short text message to one phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// SNSSender sends SMS messages via AWS SNS.
type SNSSender struct {
	client *sns.Client
	logger *zap.Logger
}

// NewSNSSender constructs an SNS-backed SMS sender using the default AWS
// credential chain.
func NewSNSSender(ctx context.Context, region string, log *zap.Logger) (*SNSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SNSSender{client: sns.NewFromConfig(awsCfg), logger: log}, nil
}

func (s *SNSSender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	if err != nil {
		return fmt.Errorf("publish sms to %s: %w", logger.MaskPhone(to), err)
	}

	s.logger.Debug("sms delivered", zap.String("to", logger.MaskPhone(to)))
	return nil
}

var _ SMSSender = (*SNSSender)(nil)
