package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != DefaultFromName {
		t.Errorf("expected default from name %q, got %q", DefaultFromName, sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "Frisco Pediatrics",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Frisco Pediatrics" {
		t.Errorf("expected from name 'Frisco Pediatrics', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilWithoutClient(t *testing.T) {
	if sender := NewSESSender(nil, SESConfig{FromEmail: "clinic@example.com"}, nil); sender != nil {
		t.Error("expected nil sender when client is nil")
	}
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "clinic@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:       "ann@example.com",
		ReplyTo:  "orders@example.com",
		Subject:  "Appointment Confirmation with Dr. Jane Doe",
		Body:     "text",
		HTML:     "<p>html</p>",
		Category: CategoryConfirmation,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := client.input
	if got := aws.ToString(in.FromEmailAddress); got != `"`+DefaultFromName+`" <clinic@example.com>` {
		t.Errorf("unexpected from address %q", got)
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "ann@example.com" {
		t.Errorf("unexpected destination %v", in.Destination.ToAddresses)
	}
	if len(in.ReplyToAddresses) != 1 || in.ReplyToAddresses[0] != "orders@example.com" {
		t.Errorf("unexpected reply-to %v", in.ReplyToAddresses)
	}
	if in.Content.Simple.Body.Text == nil || in.Content.Simple.Body.Html == nil {
		t.Error("expected both text and html bodies")
	}
	if len(in.EmailTags) != 1 || aws.ToString(in.EmailTags[0].Name) != "category" ||
		aws.ToString(in.EmailTags[0].Value) != CategoryConfirmation {
		t.Errorf("unexpected tags %+v", in.EmailTags)
	}
}

func TestSESSender_NamedRecipient(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "clinic@example.com", FromName: "Frisco Pediatrics"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "ann@example.com", ToName: "Ann Lee", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.input.Destination.ToAddresses[0]; got != `"Ann Lee" <ann@example.com>` {
		t.Errorf("unexpected destination %q", got)
	}
	if client.input.EmailTags != nil {
		t.Errorf("expected no tags without a category, got %+v", client.input.EmailTags)
	}
}

func TestSendersRejectIncompleteMessages(t *testing.T) {
	senders := map[string]EmailSender{
		"stub":     NewStubEmailSender(nil),
		"ses":      NewSESSender(&fakeSES{}, SESConfig{FromEmail: "clinic@example.com"}, nil),
		"sendgrid": NewSendGridSender(SendGridConfig{APIKey: "SG.test", FromEmail: "clinic@example.com"}, nil),
	}
	for name, sender := range senders {
		t.Run(name, func(t *testing.T) {
			err := sender.Send(context.Background(), EmailMessage{To: "  ", Subject: "s"})
			if !errors.Is(err, ErrNoRecipient) {
				t.Errorf("expected ErrNoRecipient, got %v", err)
			}
			if err := sender.Send(context.Background(), EmailMessage{To: "ann@example.com"}); err == nil {
				t.Error("expected error without subject")
			}
		})
	}
}

func TestSESSender_SendError(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	sender := NewSESSender(client, SESConfig{FromEmail: "clinic@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "ann@example.com", Subject: "s", Body: "b"})
	if err == nil {
		t.Fatal("expected error from SES")
	}
	if client.input.Content.Simple.Body.Html != nil {
		t.Error("html body should be omitted when empty")
	}
}
