package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/pafrisco/clinic-booking/internal/config"
	"github.com/pafrisco/clinic-booking/internal/notify"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

func TestBuildEmailSenderSelectsTransport(t *testing.T) {
	logger := logging.New("error")
	loadAWS := func(context.Context, *appconfig.Config) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}

	tests := []struct {
		name    string
		cfg     *appconfig.Config
		check   func(notify.EmailSender) bool
		wantErr bool
	}{
		{
			name:  "stub",
			cfg:   &appconfig.Config{EmailProvider: appconfig.EmailProviderStub},
			check: func(s notify.EmailSender) bool { _, ok := s.(*notify.StubEmailSender); return ok },
		},
		{
			name: "sendgrid",
			cfg: &appconfig.Config{
				EmailProvider:    appconfig.EmailProviderSendGrid,
				SendGridAPIKey:   "SG.test",
				EmailFromAddress: "clinic@example.com",
			},
			check: func(s notify.EmailSender) bool { _, ok := s.(*notify.SendGridSender); return ok },
		},
		{
			name:    "sendgrid without key",
			cfg:     &appconfig.Config{EmailProvider: appconfig.EmailProviderSendGrid},
			wantErr: true,
		},
		{
			name: "ses",
			cfg: &appconfig.Config{
				EmailProvider:    appconfig.EmailProviderSES,
				EmailFromAddress: "clinic@example.com",
				AWSRegion:        "us-east-1",
			},
			check: func(s notify.EmailSender) bool { _, ok := s.(*notify.SESSender); return ok },
		},
		{
			name:    "unknown",
			cfg:     &appconfig.Config{EmailProvider: "smtp"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := BuildEmailSender(context.Background(), tt.cfg, loadAWS, logger)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(sender) {
				t.Fatalf("unexpected sender type %T", sender)
			}
		})
	}
}

func TestBuildEmailSenderAWSLoadFailure(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: appconfig.EmailProviderSES}
	failing := func(context.Context, *appconfig.Config) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}
	if _, err := BuildEmailSender(context.Background(), cfg, failing, nil); err == nil {
		t.Fatalf("expected error when aws config fails to load")
	}
	if _, err := BuildEmailSender(context.Background(), cfg, nil, nil); err == nil {
		t.Fatalf("expected error without aws loader")
	}
}
