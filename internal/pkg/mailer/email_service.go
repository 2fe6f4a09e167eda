package mailer

import (
	"fmt"
	"html"
	"net/url"

	"ai-studytool-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendWelcome(toEmail, fullName string, dailyFreeCredits int) error
	SendCreditReceipt(toEmail, fullName string, amount, paidBalance int, notes string) error
	SendVerificationCode(toEmail, code string) error
	SendPasswordReset(toEmail, token string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	clientURL   string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName, clientURL string, log logger.ILogger) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		clientURL:   clientURL,
		logger:      log,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) send(kind, toEmail string, m *gomail.Message) error {
	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send "+kind, map[string]interface{}{"to": toEmail, "error": err.Error()})
		return err
	}
	s.logger.Info("MAILER", kind+" sent", map[string]interface{}{"to": toEmail})
	return nil
}

func (s *emailService) SendWelcome(toEmail, fullName string, dailyFreeCredits int) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome, %s!</h2>
			<p>Your study tool account is ready.</p>
			<p>You get <strong>%d free credits every day</strong> for summaries, practice questions, explanations and rewrites.</p>
			<a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Start studying</a>
		</div>
	`, html.EscapeString(fullName), dailyFreeCredits, s.clientURL)

	return s.send("welcome email", toEmail, s.newMessage(toEmail, "Welcome to AI Study Tool", body))
}

func (s *emailService) SendCreditReceipt(toEmail, fullName string, amount, paidBalance int, notes string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Credits added</h2>
			<p>Hi %s, <strong>%d credits</strong> were added to your wallet.</p>
			<p>Your paid balance is now <strong>%d</strong>.</p>
			<p style="color: #777;">%s</p>
		</div>
	`, html.EscapeString(fullName), amount, paidBalance, html.EscapeString(notes))

	return s.send("credit receipt", toEmail, s.newMessage(toEmail, "Credits added to your wallet", body))
}

func (s *emailService) SendVerificationCode(toEmail, code string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Verify your email</h2>
			<p>Your verification code is:</p>
			<h1 style="color: #4CAF50; letter-spacing: 5px;">%s</h1>
			<p>This code will expire in 10 minutes.</p>
			<p>If you didn't create an account, please ignore this email.</p>
		</div>
	`, html.EscapeString(code))

	return s.send("verification code", toEmail, s.newMessage(toEmail, "Your verification code", body))
}

// ResetLink is the frontend page that accepts a password reset token.
func ResetLink(clientURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", clientURL, url.QueryEscape(token))
}

func (s *emailService) SendPasswordReset(toEmail, token string) error {
	link := html.EscapeString(ResetLink(s.clientURL, token))
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Password Reset Request</h2>
			<p>You requested to reset your password. Click the button below to proceed:</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
			<p>Or copy this link:</p>
			<p>%s</p>
			<p>This link will expire in 1 hour.</p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>
	`, link, link)

	return s.send("password reset", toEmail, s.newMessage(toEmail, "Reset your password", body))
}
