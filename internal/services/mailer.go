package services

import (
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client *resend.Client
	from   string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("RESEND_API_KEY")
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "GigVault <notifications@gigvault.app>"
	}

	if apiKey == "" {
		log.Println("⚠️  RESEND_API_KEY is empty, email notifications disabled")
		return &EmailService{from: from}
	}

	return &EmailService{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (es *EmailService) send(to, subject, html string) error {
	if es.client == nil {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    es.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	if _, err := es.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendWorkSubmittedEmail tells the client there is work waiting for review
func (es *EmailService) SendWorkSubmittedEmail(to, freelancerName, gigTitle string) error {
	subject := fmt.Sprintf("Work submitted for \"%s\"", gigTitle)
	html := fmt.Sprintf(`
<p>%s has submitted work for your gig <strong>%s</strong>.</p>
<p>Log in to review the deliverable and release payment.</p>
`, freelancerName, gigTitle)
	return es.send(to, subject, html)
}

// SendPaymentReleasedEmail tells the freelancer funds are on the way
func (es *EmailService) SendPaymentReleasedEmail(to, gigTitle, amount, wallet string) error {
	subject := fmt.Sprintf("Payment released for \"%s\"", gigTitle)
	html := fmt.Sprintf(`
<p>%s USDC has been released for <strong>%s</strong>.</p>
<p>Funds were sent to your wallet <code>%s</code> via the x402 settlement network.</p>
`, amount, gigTitle, wallet)
	return es.send(to, subject, html)
}
