package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

// sesAPI is the part of the SES v2 client the sender uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Attachment is a file attached to an outgoing message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is an outgoing email
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// SESV2Sender sends email through AWS SES v2
type SESV2Sender struct {
	client    sesAPI
	fromEmail string
	logger    *logrus.Logger
}

// NewSESV2Sender creates a sender for Amazon SES.
// Credentials are resolved from the default AWS chain (env, shared config, role).
func NewSESV2Sender(ctx context.Context, region, fromEmail string, logger *logrus.Logger) (*SESV2Sender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESV2Sender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		logger:    logger,
	}, nil
}

// Send delivers a message. Messages without attachments use the simple
// content form; messages with attachments are sent as raw MIME.
func (s *SESV2Sender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("email recipient is required")
	}

	content := &types.EmailContent{}
	if len(msg.Attachments) == 0 {
		content.Simple = simpleMessage(msg)
	} else {
		raw, err := buildRawMessage(s.fromEmail, msg)
		if err != nil {
			return fmt.Errorf("failed to build email: %w", err)
		}
		content.Raw = &types.RawMessage{Data: raw}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: content,
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.WithError(err).WithField("to", msg.To).Error("Failed to send email via SES")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"to":          msg.To,
		"message_id":  aws.ToString(out.MessageId),
		"attachments": len(msg.Attachments),
	}).Info("Email sent")
	return nil
}

func simpleMessage(msg Message) *types.Message {
	body := &types.Body{}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	return &types.Message{
		Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
		Body:    body,
	}
}
