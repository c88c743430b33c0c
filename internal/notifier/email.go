package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	config "github.com/Keoroanthony/customer-gateway/configs"
	"github.com/Keoroanthony/customer-gateway/internal/models"
)

// SESAPI is the part of the SES client EmailSender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender tells the operations mailbox about new customers over SES.
type EmailSender struct {
	client    SESAPI
	sender    string
	recipient string
}

// NewEmailSender loads the AWS configuration. Static credentials are used
// when both keys are set, otherwise the default chain applies.
func NewEmailSender(ctx context.Context, cfg config.EmailConfig) (*EmailSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return NewEmailSenderWithClient(ses.NewFromConfig(awsCfg), cfg.SenderEmail, cfg.Recipient), nil
}

func NewEmailSenderWithClient(client SESAPI, sender, recipient string) *EmailSender {
	return &EmailSender{client: client, sender: sender, recipient: recipient}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, c models.Customer) error {
	if s.sender == "" {
		return fmt.Errorf("sender email address is not configured in environment variables")
	}
	if s.recipient == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	subject := fmt.Sprintf("New customer registered: %s", c.Name)

	bodyHTML := fmt.Sprintf(`
        <html>
        <body>
            <p>A new customer has been registered.</p>
            <ul>
                <li>ID: %s</li>
                <li>Name: %s</li>
                <li>Phone: %s</li>
                <li>Photo: <a href="%s">%s</a></li>
            </ul>
        </body>
        </html>`, c.ID, c.Name, c.Phone, c.Photo, c.Photo)

	bodyText := fmt.Sprintf(
		"A new customer has been registered.\n\nID: %s\nName: %s\nPhone: %s\nPhoto: %s\n",
		c.ID, c.Name, c.Phone, c.Photo)

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{s.recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyHTML),
				},
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyText),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
