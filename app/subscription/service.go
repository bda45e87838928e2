package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
	"github.com/gecanews/newswatch/app/token"
)

var (
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrCaptchaFailed       = errors.New("captcha verification failed")
	ErrUndeliverableDomain = errors.New("email domain cannot receive mail")
	ErrAlreadySubscribed   = errors.New("already subscribed")
)

// Service drives the subscriber state machine. It is the sole writer of
// subscriber records.
//
// Subscribe is the token-only variant: no pending row is created, the
// pending state lives entirely in the signed verification token. The
// subscriber record appears on successful verification and disappears on
// unsubscribe.
type Service struct {
	subscriberRepo database.SubscriberRepository
	signer         *token.Signer
	sender         mail.Sender
	composer       *mail.Composer
	captcha        CaptchaVerifier
	mx             MXChecker
	verifyTTL      time.Duration
	unsubscribeTTL time.Duration
}

func NewService(subscriberRepo database.SubscriberRepository, signer *token.Signer,
	sender mail.Sender, composer *mail.Composer, captcha CaptchaVerifier, mx MXChecker,
	verifyTTL, unsubscribeTTL time.Duration) *Service {
	return &Service{
		subscriberRepo: subscriberRepo,
		signer:         signer,
		sender:         sender,
		composer:       composer,
		captcha:        captcha,
		mx:             mx,
		verifyTTL:      verifyTTL,
		unsubscribeTTL: unsubscribeTTL,
	}
}

// Subscribe validates a subscribe request and sends a confirmation link
// carrying a short-lived verification token. No record is created yet.
func (s *Service) Subscribe(ctx context.Context, email, captchaToken string) error {
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	ok, err := s.captcha.Verify(ctx, captchaToken)
	if err != nil {
		return fmt.Errorf("captcha check errored: %w", err)
	}
	if !ok {
		return ErrCaptchaFailed
	}

	existing, err := s.subscriberRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if existing != nil && existing.State == database.StateActive {
		return ErrAlreadySubscribed
	}

	domain := email[strings.LastIndex(email, "@")+1:]
	hasMX, err := s.mx.HasMX(ctx, domain)
	if err != nil {
		return fmt.Errorf("domain check errored: %w", err)
	}
	if !hasMX {
		return ErrUndeliverableDomain
	}

	verifyToken, err := s.signer.Issue(email, token.PurposeVerify, s.verifyTTL)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	msg := s.composer.VerificationMessage(email, verifyToken)
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification mail: %w", err)
	}

	slog.Info("Verification mail sent", "email", email)
	return nil
}

// Verify promotes a token-holder to an active subscriber and sends the
// welcome mail with a long-lived unsubscribe token.
func (s *Service) Verify(ctx context.Context, tokenString string) (string, error) {
	email, err := s.signer.Verify(tokenString, token.PurposeVerify)
	if err != nil {
		return "", err
	}

	_, err = s.subscriberRepo.Insert(email, database.StateActive)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			// Repeated presentation of a still-valid token
			return email, ErrAlreadySubscribed
		}
		return "", fmt.Errorf("failed to activate subscriber: %w", err)
	}

	slog.Info("Subscriber activated", "email", email)

	s.sendWelcome(ctx, email)
	return email, nil
}

// Unsubscribe deletes the token-holder's record. Deleting an absent record
// succeeds, so presenting the same valid token twice is not an error.
func (s *Service) Unsubscribe(ctx context.Context, tokenString string) (string, error) {
	email, err := s.signer.Verify(tokenString, token.PurposeUnsubscribe)
	if err != nil {
		return "", err
	}

	if err := s.subscriberRepo.Delete(email); err != nil {
		return "", fmt.Errorf("failed to delete subscriber: %w", err)
	}

	slog.Info("Subscriber removed", "email", email)
	return email, nil
}

// ActivateVerified activates an address vouched for by a trusted sign-in
// provider, skipping the email-ownership proof step.
func (s *Service) ActivateVerified(ctx context.Context, email string) error {
	if _, err := netmail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	_, err := s.subscriberRepo.Insert(email, database.StateActive)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("failed to activate subscriber: %w", err)
	}

	slog.Info("Subscriber activated via sign-in provider", "email", email)

	s.sendWelcome(ctx, email)
	return nil
}

// sendWelcome delivers the welcome mail. A send failure does not roll back
// activation; the subscriber is already in.
func (s *Service) sendWelcome(ctx context.Context, email string) {
	unsubToken, err := s.signer.Issue(email, token.PurposeUnsubscribe, s.unsubscribeTTL)
	if err != nil {
		slog.Error("Failed to issue unsubscribe token for welcome mail", "email", email, "error", err)
		return
	}

	msg := s.composer.WelcomeMessage(email, unsubToken)
	if err := s.sender.Send(ctx, msg); err != nil {
		slog.Error("Failed to send welcome mail", "email", email, "error", err)
	}
}
