package service

import (
	"context"

	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/pkg/mailer"
	"ai-studytool-be/pkg/events"
	pktNats "ai-studytool-be/pkg/nats"
)

const (
	WelcomeMailerDurable = "welcome-mailer"
	ReceiptMailerDurable = "receipt-mailer"
)

// EventSubscriber registers a durable handler for one subject.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// NotificationService sends emails for events coming back from NATS.
type NotificationService struct {
	subscriber EventSubscriber
	email      mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationService(sub EventSubscriber, email mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		email:      email,
		logger:     log,
	}
}

func (s *NotificationService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+events.TypeUserRegistered, WelcomeMailerDurable, s.HandleUserRegistered); err != nil {
		return err
	}
	if err := s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+events.TypeCreditsGranted, ReceiptMailerDurable, s.HandleCreditsGranted); err != nil {
		return err
	}
	s.logger.Info("NOTIFICATION", "Mail subscribers started", nil)
	return nil
}

func (s *NotificationService) HandleUserRegistered(ctx context.Context, event events.BaseEvent) error {
	email := event.String("email")
	if email == "" {
		s.logger.Warn("NOTIFICATION", "USER_REGISTERED without email, skipping", nil)
		return nil
	}
	return s.email.SendWelcome(email, event.String("full_name"), event.Int("daily_free_credits"))
}

func (s *NotificationService) HandleCreditsGranted(ctx context.Context, event events.BaseEvent) error {
	email := event.String("email")
	if email == "" {
		s.logger.Warn("NOTIFICATION", "CREDITS_GRANTED without email, skipping", nil)
		return nil
	}
	return s.email.SendCreditReceipt(email, event.String("full_name"), event.Int("amount"), event.Int("paid_credits"), event.String("notes"))
}
