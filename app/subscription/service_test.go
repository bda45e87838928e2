package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
	"github.com/gecanews/newswatch/app/token"
)

// MockSubscriberRepository implements a simple in-memory repository for testing
type MockSubscriberRepository struct {
	subscribers map[string]*database.Subscriber
	insertErr   error
}

var _ database.SubscriberRepository = (*MockSubscriberRepository)(nil)

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{subscribers: make(map[string]*database.Subscriber)}
}

func (m *MockSubscriberRepository) GetByEmail(email string) (*database.Subscriber, error) {
	return m.subscribers[email], nil
}

func (m *MockSubscriberRepository) GetActive() ([]database.Subscriber, error) {
	var subs []database.Subscriber
	for _, sub := range m.subscribers {
		if sub.State == database.StateActive {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (m *MockSubscriberRepository) GetAll() ([]database.Subscriber, error) {
	var subs []database.Subscriber
	for _, sub := range m.subscribers {
		subs = append(subs, *sub)
	}
	return subs, nil
}

func (m *MockSubscriberRepository) GetCount() (int, error) {
	return len(m.subscribers), nil
}

func (m *MockSubscriberRepository) Insert(email, state string) (*database.Subscriber, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if _, exists := m.subscribers[email]; exists {
		return nil, database.ErrDuplicateEmail
	}
	sub := &database.Subscriber{ID: "id-" + email, Email: email, State: state, CreatedAt: time.Now()}
	m.subscribers[email] = sub
	return sub, nil
}

func (m *MockSubscriberRepository) Delete(email string) error {
	delete(m.subscribers, email)
	return nil
}

// MockSender records sent messages and can fail specific recipients
type MockSender struct {
	sent    []mail.Message
	failFor map[string]error
}

var _ mail.Sender = (*MockSender)(nil)

func NewMockSender() *MockSender {
	return &MockSender{failFor: make(map[string]error)}
}

func (m *MockSender) Send(ctx context.Context, msg mail.Message) error {
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// MockCaptchaVerifier returns a fixed verdict
type MockCaptchaVerifier struct {
	ok  bool
	err error
}

func (m *MockCaptchaVerifier) Verify(ctx context.Context, captchaToken string) (bool, error) {
	return m.ok, m.err
}

// MockMXChecker returns a fixed verdict
type MockMXChecker struct {
	ok  bool
	err error
}

func (m *MockMXChecker) HasMX(ctx context.Context, domain string) (bool, error) {
	return m.ok, m.err
}

func newTestService(repo *MockSubscriberRepository, sender *MockSender,
	captchaOK, mxOK bool) *Service {
	signer, _ := token.NewSigner("test-secret")
	composer := mail.NewComposer("news@example.edu", "https://news.example.edu")
	return NewService(repo, signer, sender, composer,
		&MockCaptchaVerifier{ok: captchaOK}, &MockMXChecker{ok: mxOK},
		15*time.Minute, 21*24*time.Hour)
}

func TestSubscribeSendsVerificationMail(t *testing.T) {
	repo := NewMockSubscriberRepository()
	sender := NewMockSender()
	service := newTestService(repo, sender, true, true)

	err := service.Subscribe(context.Background(), "student@example.edu", "captcha-ok")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 verification mail, got: %d", len(sender.sent))
	}
	if sender.sent[0].To != "student@example.edu" {
		t.Errorf("Expected mail to requester, got: %s", sender.sent[0].To)
	}

	// Token-only flow: no record exists before verification
	if count, _ := repo.GetCount(); count != 0 {
		t.Errorf("Expected no subscriber record before verification, got %d", count)
	}
}

func TestSubscribeInvalidEmail(t *testing.T) {
	service := newTestService(NewMockSubscriberRepository(), NewMockSender(), true, true)

	for _, email := range []string{"", "not-an-email", "a b@example.edu", "Display Name <x@example.edu>"} {
		err := service.Subscribe(context.Background(), email, "captcha-ok")
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Expected ErrInvalidEmail for %q, got: %v", email, err)
		}
	}
}

func TestSubscribeCaptchaFailure(t *testing.T) {
	service := newTestService(NewMockSubscriberRepository(), NewMockSender(), false, true)

	err := service.Subscribe(context.Background(), "student@example.edu", "bad")
	if !errors.Is(err, ErrCaptchaFailed) {
		t.Errorf("Expected ErrCaptchaFailed, got: %v", err)
	}
}

func TestSubscribeUndeliverableDomain(t *testing.T) {
	service := newTestService(NewMockSubscriberRepository(), NewMockSender(), true, false)

	err := service.Subscribe(context.Background(), "student@nomx.example", "captcha-ok")
	if !errors.Is(err, ErrUndeliverableDomain) {
		t.Errorf("Expected ErrUndeliverableDomain, got: %v", err)
	}
}

func TestSubscribeAlreadyActive(t *testing.T) {
	repo := NewMockSubscriberRepository()
	repo.Insert("student@example.edu", database.StateActive)
	sender := NewMockSender()
	service := newTestService(repo, sender, true, true)

	err := service.Subscribe(context.Background(), "student@example.edu", "captcha-ok")
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("Expected ErrAlreadySubscribed, got: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("Expected no mail for already-active address, got %d", len(sender.sent))
	}
}

func TestVerifyActivatesAndSendsWelcome(t *testing.T) {
	repo := NewMockSubscriberRepository()
	sender := NewMockSender()
	service := newTestService(repo, sender, true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeVerify, 15*time.Minute)

	email, err := service.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if email != "student@example.edu" {
		t.Errorf("Expected verified email, got: %s", email)
	}

	sub, _ := repo.GetByEmail("student@example.edu")
	if sub == nil || sub.State != database.StateActive {
		t.Fatalf("Expected active subscriber record, got: %+v", sub)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("Expected welcome mail, got %d messages", len(sender.sent))
	}
	if sender.sent[0].Subject != "Welcome to GECA News Updates 🎓" {
		t.Errorf("Expected welcome subject, got: %s", sender.sent[0].Subject)
	}
}

func TestVerifyRepeatedTokenReportsAlreadySubscribed(t *testing.T) {
	repo := NewMockSubscriberRepository()
	service := newTestService(repo, NewMockSender(), true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeVerify, 15*time.Minute)

	if _, err := service.Verify(context.Background(), tok); err != nil {
		t.Fatalf("Expected first verification to succeed, got: %v", err)
	}

	_, err := service.Verify(context.Background(), tok)
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("Expected ErrAlreadySubscribed on repeat, got: %v", err)
	}

	if count, _ := repo.GetCount(); count != 1 {
		t.Errorf("Expected exactly one record, got %d", count)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	service := newTestService(NewMockSubscriberRepository(), NewMockSender(), true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeVerify, -time.Minute)

	_, err := service.Verify(context.Background(), tok)
	if !errors.Is(err, token.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got: %v", err)
	}
}

func TestVerifyWelcomeFailureDoesNotRollBack(t *testing.T) {
	repo := NewMockSubscriberRepository()
	sender := NewMockSender()
	sender.failFor["student@example.edu"] = errors.New("smtp down")
	service := newTestService(repo, sender, true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeVerify, 15*time.Minute)

	if _, err := service.Verify(context.Background(), tok); err != nil {
		t.Fatalf("Expected activation to succeed despite welcome failure, got: %v", err)
	}

	sub, _ := repo.GetByEmail("student@example.edu")
	if sub == nil || sub.State != database.StateActive {
		t.Errorf("Expected subscriber to stay active, got: %+v", sub)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	repo := NewMockSubscriberRepository()
	repo.Insert("student@example.edu", database.StateActive)
	service := newTestService(repo, NewMockSender(), true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeUnsubscribe, time.Hour)

	if _, err := service.Unsubscribe(context.Background(), tok); err != nil {
		t.Fatalf("Expected first unsubscribe to succeed, got: %v", err)
	}
	if sub, _ := repo.GetByEmail("student@example.edu"); sub != nil {
		t.Error("Expected subscriber record deleted")
	}

	// Same valid token again: no error, no mutation
	if _, err := service.Unsubscribe(context.Background(), tok); err != nil {
		t.Errorf("Expected repeated unsubscribe to succeed, got: %v", err)
	}
}

func TestUnsubscribeRejectsVerifyToken(t *testing.T) {
	repo := NewMockSubscriberRepository()
	repo.Insert("student@example.edu", database.StateActive)
	service := newTestService(repo, NewMockSender(), true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeVerify, time.Hour)

	_, err := service.Unsubscribe(context.Background(), tok)
	if !errors.Is(err, token.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong-purpose token, got: %v", err)
	}
	if sub, _ := repo.GetByEmail("student@example.edu"); sub == nil {
		t.Error("Expected subscriber record untouched")
	}
}

func TestActivateVerified(t *testing.T) {
	repo := NewMockSubscriberRepository()
	sender := NewMockSender()
	service := newTestService(repo, sender, true, true)

	if err := service.ActivateVerified(context.Background(), "student@example.edu"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	sub, _ := repo.GetByEmail("student@example.edu")
	if sub == nil || sub.State != database.StateActive {
		t.Fatalf("Expected active record, got: %+v", sub)
	}
	if len(sender.sent) != 1 {
		t.Errorf("Expected welcome mail, got %d messages", len(sender.sent))
	}

	err := service.ActivateVerified(context.Background(), "student@example.edu")
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("Expected ErrAlreadySubscribed on repeat activation, got: %v", err)
	}
}

func TestConcurrentSubscribeSingleWinner(t *testing.T) {
	repo := NewMockSubscriberRepository()
	service := newTestService(repo, NewMockSender(), true, true)

	tok, _ := serviceSigner(t).Issue("student@example.edu", token.PurposeVerify, 15*time.Minute)

	// Two verify attempts racing for the same address: the unique key makes
	// exactly one insert win
	var okCount, dupCount int
	for i := 0; i < 2; i++ {
		_, err := service.Verify(context.Background(), tok)
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrAlreadySubscribed):
			dupCount++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if okCount != 1 || dupCount != 1 {
		t.Errorf("Expected exactly one winner, got ok=%d dup=%d", okCount, dupCount)
	}
	if count, _ := repo.GetCount(); count != 1 {
		t.Errorf("Expected exactly one active record, got %d", count)
	}
}

func serviceSigner(t *testing.T) *token.Signer {
	t.Helper()
	signer, err := token.NewSigner("test-secret")
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	return signer
}
