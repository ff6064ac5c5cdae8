// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almonhna/almonhna/internal/config"
	"github.com/almonhna/almonhna/internal/model"
	"github.com/almonhna/almonhna/internal/store"
	"github.com/almonhna/almonhna/internal/testutil"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	errs []error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestWelcomeEmailRender(t *testing.T) {
	msg, err := WelcomeEmail{Email: "writer@example.com", Name: "سارة"}.Render("https://almonhna.com/")
	require.NoError(t, err)

	assert.Equal(t, WelcomeSubject, msg.Subject)
	assert.Equal(t, "writer@example.com", msg.To)
	assert.Contains(t, msg.HTML, `dir="rtl"`)
	assert.Contains(t, msg.HTML, "مرحباً سارة!")
	assert.Contains(t, msg.HTML, `href="https://almonhna.com/auth"`)
	assert.Contains(t, msg.HTML, "تسجيل الدخول الآن")
	assert.NotContains(t, msg.HTML, "تعيين كلمة المرور")
	assert.Contains(t, msg.Text, "https://almonhna.com/auth")
}

func TestWelcomeEmailRender_CustomSiteAndPasswordLink(t *testing.T) {
	msg, err := WelcomeEmail{
		Email:          "writer@example.com",
		Name:           "Sara",
		SiteURL:        "https://preview.almonhna.com",
		SetPasswordURL: "https://preview.almonhna.com/auth/reset?token=abc",
	}.Render("https://almonhna.com")
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, `href="https://preview.almonhna.com/auth"`)
	assert.Contains(t, msg.HTML, "token=abc")
}

func TestWelcomeEmailRender_EscapesName(t *testing.T) {
	msg, err := WelcomeEmail{Email: "w@example.com", Name: "<script>x</script>"}.Render("https://almonhna.com")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestWelcomeEmailValidate(t *testing.T) {
	tests := []struct {
		name  string
		email WelcomeEmail
	}{
		{"missing email", WelcomeEmail{Name: "A"}},
		{"missing name", WelcomeEmail{Email: "a@example.com"}},
		{"blank name", WelcomeEmail{Email: "a@example.com", Name: "   "}},
		{"malformed email", WelcomeEmail{Email: "not-an-email", Name: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.email.Validate(), ErrInvalidEmail)
		})
	}
}

func TestPasswordResetEmailRender(t *testing.T) {
	msg, err := PasswordResetEmail{
		Email:     "w@example.com",
		Name:      "W",
		ResetURL:  "https://almonhna.com/auth/reset?token=t",
		ExpiresAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}.Render()
	require.NoError(t, err)

	assert.Equal(t, PasswordResetSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "token=t")
	assert.Contains(t, msg.HTML, "2026-01-02 03:04 UTC")
}

func TestSendGridSender(t *testing.T) {
	var got sgRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridSender("sg-key", Address{Email: "noreply@almonhna.com", Name: "المنحنى"})
	s.endpoint = srv.URL

	err := s.Send(context.Background(), Message{To: "w@example.com", Subject: "S", HTML: "<p>h</p>", Text: "t"})
	require.NoError(t, err)

	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "w@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "S", got.Personalizations[0].Subject)
	assert.Equal(t, "noreply@almonhna.com", got.From.Email)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "text/plain", got.Content[0].Type)
	assert.Equal(t, "text/html", got.Content[1].Type)
}

func TestSendGridSender_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			s := NewSendGridSender("k", Address{Email: "noreply@almonhna.com"})
			s.endpoint = srv.URL

			err := s.Send(context.Background(), Message{To: "w@example.com", HTML: "x"})
			require.Error(t, err)

			var se *SendError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.retryable, Retryable(err))
		})
	}
}

func TestSendGridSender_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	s := NewSendGridSender("k", Address{Email: "noreply@almonhna.com"})
	s.endpoint = srv.URL

	err := s.Send(context.Background(), Message{To: "w@example.com", HTML: "x"})
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(ErrNotConfigured))
	assert.False(t, Retryable(ErrInvalidEmail))
	assert.True(t, Retryable(errors.New("connection reset")))
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr error
		want    any
	}{
		{"log", config.Config{MailProvider: config.MailProviderLog}, nil, &LogSender{}},
		{"sendgrid", config.Config{MailProvider: config.MailProviderSendGrid, SendGridAPIKey: "k"}, nil, &SendGridSender{}},
		{"sendgrid without key", config.Config{MailProvider: config.MailProviderSendGrid}, ErrNotConfigured, nil},
		{"resend", config.Config{MailProvider: config.MailProviderResend, ResendAPIKey: "k"}, nil, &ResendSender{}},
		{"resend without key", config.Config{MailProvider: config.MailProviderResend}, ErrNotConfigured, nil},
		{"unknown", config.Config{MailProvider: "smtp"}, ErrNotConfigured, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSender(&tt.cfg, testutil.TestLoggerSilent())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int64
		want    time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{5, 16 * time.Minute},
		{20, MaxBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func newTestOutbox(t *testing.T, sender Sender) (*Outbox, *store.Queries) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	o := NewOutbox(db, sender, "https://almonhna.com", testutil.TestLoggerSilent())
	return o, store.New(db)
}

func TestOutbox_DeliverSuccess(t *testing.T) {
	sender := &fakeSender{}
	o, q := newTestOutbox(t, sender)
	ctx := context.Background()

	id, err := o.EnqueueWelcome(ctx, nil, WelcomeEmail{Email: "w@example.com", Name: "W"})
	require.NoError(t, err)

	require.NoError(t, o.Deliver(ctx, id))
	require.Equal(t, 1, sender.count())
	assert.Contains(t, sender.sent[0].HTML, "https://almonhna.com/auth")

	n, err := q.GetNotification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationSent, n.Status)
	assert.EqualValues(t, 1, n.Attempts)

	// A second delivery of a sent notification is a no-op.
	require.NoError(t, o.Deliver(ctx, id))
	assert.Equal(t, 1, sender.count())
}

func TestOutbox_RetryableFailureIsRescheduled(t *testing.T) {
	sender := &fakeSender{errs: []error{&SendError{Provider: "test", StatusCode: 503}}}
	o, q := newTestOutbox(t, sender)
	ctx := context.Background()
	start := time.Now().UTC()

	id, err := o.EnqueueWelcome(ctx, nil, WelcomeEmail{Email: "w@example.com", Name: "W"})
	require.NoError(t, err)

	require.Error(t, o.Deliver(ctx, id))

	n, err := q.GetNotification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationPending, n.Status)
	assert.EqualValues(t, 1, n.Attempts)
	assert.True(t, n.NextAttemptAt.After(start.Add(50*time.Second)), "next attempt should be about a minute out")
	assert.NotEmpty(t, n.LastError)

	// Not yet due.
	sent, err := o.RetryDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Advance the clock past the backoff.
	o.now = func() time.Time { return start.Add(2 * time.Minute) }
	sent, err = o.RetryDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	n, err = q.GetNotification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationSent, n.Status)
	assert.EqualValues(t, 2, n.Attempts)
}

func TestOutbox_PermanentFailureIsDead(t *testing.T) {
	sender := &fakeSender{errs: []error{&SendError{Provider: "test", StatusCode: 400}}}
	o, q := newTestOutbox(t, sender)
	ctx := context.Background()

	id, err := o.EnqueueWelcome(ctx, nil, WelcomeEmail{Email: "w@example.com", Name: "W"})
	require.NoError(t, err)
	require.Error(t, o.Deliver(ctx, id))

	n, err := q.GetNotification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationDead, n.Status)
}

func TestOutbox_DeadAfterMaxAttempts(t *testing.T) {
	errs := make([]error, MaxAttempts)
	for i := range errs {
		errs[i] = &SendError{Provider: "test", StatusCode: 500}
	}
	sender := &fakeSender{errs: errs}
	o, q := newTestOutbox(t, sender)
	ctx := context.Background()
	clock := time.Now().UTC()
	o.now = func() time.Time { return clock }

	id, err := o.EnqueueWelcome(ctx, nil, WelcomeEmail{Email: "w@example.com", Name: "W"})
	require.NoError(t, err)

	for i := 0; i < MaxAttempts; i++ {
		require.Error(t, o.Deliver(ctx, id))
		clock = clock.Add(MaxBackoff + time.Minute)
	}

	n, err := q.GetNotification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationDead, n.Status)
	assert.EqualValues(t, MaxAttempts, n.Attempts)
	assert.Zero(t, sender.count())
}

func TestOutbox_WithoutSender(t *testing.T) {
	o, q := newTestOutbox(t, nil)
	ctx := context.Background()

	assert.False(t, o.Configured())

	id, err := o.EnqueuePasswordReset(ctx, nil, PasswordResetEmail{
		Email: "w@example.com", Name: "W", ResetURL: "https://almonhna.com/auth/reset?token=t",
	})
	require.NoError(t, err)
	assert.ErrorIs(t, o.Deliver(ctx, id), ErrNotConfigured)

	n, err := q.GetNotification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationPending, n.Status)
	assert.Zero(t, n.Attempts)
}

func TestOutbox_EnqueueRejectsInvalidRecipient(t *testing.T) {
	o, _ := newTestOutbox(t, &fakeSender{})
	_, err := o.EnqueueWelcome(context.Background(), nil, WelcomeEmail{Email: "", Name: "W"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestDispatcher_DeliversQueuedNotifications(t *testing.T) {
	sender := &fakeSender{}
	o, _ := newTestOutbox(t, sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(o, testutil.TestLoggerSilent(), DefaultConfig())
	d.Start(ctx)
	defer d.Stop()

	for _, name := range []string{"A", "B", "C"} {
		id, err := o.EnqueueWelcome(ctx, nil, WelcomeEmail{Email: strings.ToLower(name) + "@example.com", Name: name})
		require.NoError(t, err)
		d.Notify(id)
	}

	require.Eventually(t, func() bool { return sender.count() == 3 }, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcher_NotifyWhenStoppedDoesNotBlock(t *testing.T) {
	o, _ := newTestOutbox(t, &fakeSender{})
	d := NewDispatcher(o, testutil.TestLoggerSilent(), Config{Workers: 1, QueueSize: 1})

	done := make(chan struct{})
	go func() {
		d.Notify(1)
		d.Notify(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a stopped dispatcher")
	}
	d.Stop()
}
