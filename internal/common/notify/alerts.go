// Package notify delivers retention outreach alerts for high-risk
// churn predictions via SES email and/or an SNS topic.
package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"churn-predictor/internal/common/config"
	"churn-predictor/internal/common/logger"
	"churn-predictor/internal/common/metrics"
)

// Alert describes one high-risk prediction worth immediate outreach.
type Alert struct {
	CustomerID  string
	Probability float64
	RiskLevel   string
	ModelName   string
	TopFactors  []string
}

// Sender is the alert delivery interface; a nil Sender disables alerts.
type Sender interface {
	Send(ctx context.Context, alert Alert) error
}

type awsSender struct {
	cfg config.AlertsConfig
	ses *ses.Client
	sns *sns.Client
	log logger.Logger
}

// NewSender builds an AWS-backed sender from configuration. Returns
// nil when alerts are disabled.
func NewSender(ctx context.Context, cfg config.AlertsConfig, log logger.Logger) (Sender, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s := &awsSender{cfg: cfg, log: log}
	if cfg.UseSES {
		s.ses = ses.NewFromConfig(awsCfg)
	}
	if cfg.UseSNS {
		s.sns = sns.NewFromConfig(awsCfg)
	}
	return s, nil
}

func (s *awsSender) Send(ctx context.Context, alert Alert) error {
	subject := fmt.Sprintf("Retention alert: customer %s at %s churn risk", alert.CustomerID, alert.RiskLevel)
	body := fmt.Sprintf(
		"Customer %s scored %.1f%% churn probability (%s, model %s).\nTop risk factors: %v\nImmediate retention outreach recommended.",
		alert.CustomerID, alert.Probability*100, alert.RiskLevel, alert.ModelName, alert.TopFactors,
	)

	var firstErr error
	if s.sns != nil {
		_, err := s.sns.Publish(ctx, &sns.PublishInput{
			TopicArn: &s.cfg.TopicARN,
			Subject:  &subject,
			Message:  &body,
		})
		s.record("sns", err)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sns publish: %w", err)
		}
	}

	if s.ses != nil {
		_, err := s.ses.SendEmail(ctx, &ses.SendEmailInput{
			Source:      &s.cfg.Sender,
			Destination: &sestypes.Destination{ToAddresses: s.cfg.Recipients},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{Data: &subject},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: &body}},
			},
		})
		s.record("ses", err)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ses send: %w", err)
		}
	}

	return firstErr
}

func (s *awsSender) record(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
		s.log.Warn("retention alert delivery failed", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
	}
	metrics.RetentionAlertsTotal.WithLabelValues(channel, status).Inc()
}
