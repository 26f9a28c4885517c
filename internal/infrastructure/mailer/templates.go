package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates
var templatesFS embed.FS

const (
	TemplateRegistration   = "registration"
	TemplatePasswordReset  = "password-reset"
	TemplateDocumentUpload = "document-upload"
)

var subjects = map[string]string{
	TemplateRegistration:   "Confirm your email address",
	TemplatePasswordReset:  "Reset your password",
	TemplateDocumentUpload: "Your document was uploaded",
}

// TemplateData is the context every template renders against.
type TemplateData struct {
	Email    string
	Link     string
	Filename string
}

// TemplateMailer renders a named template and hands the result to a Sender.
type TemplateMailer struct {
	html   *htmltemplate.Template
	text   *texttemplate.Template
	sender Sender
}

func NewTemplateMailer(sender Sender) (*TemplateMailer, error) {
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	return &TemplateMailer{html: html, text: text, sender: sender}, nil
}

func (m *TemplateMailer) Render(name string, data TemplateData) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}
	var html, text bytes.Buffer
	if err := m.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}
	if err := m.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	return Message{To: data.Email, Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

// Send renders template name for data and delivers it to to.
func (m *TemplateMailer) Send(ctx context.Context, name string, data TemplateData, to string) error {
	msg, err := m.Render(name, data)
	if err != nil {
		return err
	}
	msg.To = to
	return m.sender.Send(ctx, msg)
}
