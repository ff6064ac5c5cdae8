// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Email subjects.
const (
	WelcomeSubject       = "🎉 مرحباً بك في المنحنى - تم قبول طلبك!"
	PasswordResetSubject = "إعادة تعيين كلمة المرور - المنحنى"
)

// ErrInvalidEmail is returned when a recipient email or name is missing or malformed.
var ErrInvalidEmail = errors.New("email and name are required")

// WelcomeEmail is sent to a writer once their application is approved.
type WelcomeEmail struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	SiteURL        string `json:"site_url,omitempty"`
	SetPasswordURL string `json:"set_password_url,omitempty"`
}

// Validate checks that the recipient is usable.
func (w WelcomeEmail) Validate() error {
	return validateRecipient(w.Email, w.Name)
}

// Render produces the message. An empty SiteURL falls back to defaultSiteURL.
func (w WelcomeEmail) Render(defaultSiteURL string) (Message, error) {
	if err := w.Validate(); err != nil {
		return Message{}, err
	}
	site := strings.TrimRight(w.SiteURL, "/")
	if site == "" {
		site = strings.TrimRight(defaultSiteURL, "/")
	}

	data := struct {
		Name           string
		LoginURL       string
		SetPasswordURL string
	}{
		Name:           strings.TrimSpace(w.Name),
		LoginURL:       site + "/auth",
		SetPasswordURL: w.SetPasswordURL,
	}

	html, err := render("welcome.html", data)
	if err != nil {
		return Message{}, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "مرحباً %s!\n\n", data.Name)
	text.WriteString("نحن سعداء بالإعلان عن قبول طلبك للانضمام إلى فريق الكتّاب في منصة المنحنى.\n\n")
	text.WriteString("يمكنك الآن تسجيل الدخول إلى حسابك والبدء في كتابة مقالاتك ونشر أخبارك على المنصة.\n\n")
	if data.SetPasswordURL != "" {
		fmt.Fprintf(&text, "تعيين كلمة المرور: %s\n", data.SetPasswordURL)
	}
	fmt.Fprintf(&text, "تسجيل الدخول: %s\n\nفريق المنحنى\n", data.LoginURL)

	return Message{
		To:      strings.TrimSpace(w.Email),
		ToName:  data.Name,
		Subject: WelcomeSubject,
		HTML:    html,
		Text:    text.String(),
	}, nil
}

// PasswordResetEmail carries a signed reset link.
type PasswordResetEmail struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (p PasswordResetEmail) Render() (Message, error) {
	if err := validateRecipient(p.Email, p.Name); err != nil {
		return Message{}, err
	}
	if p.ResetURL == "" {
		return Message{}, errors.New("reset URL is required")
	}

	expires := p.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC")
	data := struct {
		Name      string
		ResetURL  string
		ExpiresAt string
	}{strings.TrimSpace(p.Name), p.ResetURL, expires}

	html, err := render("password_reset.html", data)
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      strings.TrimSpace(p.Email),
		ToName:  data.Name,
		Subject: PasswordResetSubject,
		HTML:    html,
		Text:    fmt.Sprintf("مرحباً %s\n\nلإعادة تعيين كلمة المرور: %s\nالرابط صالح حتى %s.\n\nفريق المنحنى\n", data.Name, p.ResetURL, expires),
	}, nil
}

func validateRecipient(email, name string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
