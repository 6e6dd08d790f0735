package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type messageData struct {
	Code     string
	Validity time.Duration
}

type messageTemplate struct {
	subject string
	text    *template.Template
	html    *htmltemplate.Template
}

var templates = map[models.Purpose]messageTemplate{
	models.PurposeSignup: {
		subject: "Your Dovol verification code",
		text: template.Must(template.New("signup.txt").Parse(
			"Welcome to Dovol!\n\nYour verification code is {{.Code}}.\nIt expires in {{.Validity}}.\n\nIf you did not sign up, ignore this email.\n")),
		html: htmltemplate.Must(htmltemplate.New("signup.html").Parse(
			`<p>Welcome to Dovol!</p><p>Your verification code is <strong>{{.Code}}</strong>.</p><p>It expires in {{.Validity}}.</p><p>If you did not sign up, ignore this email.</p>`)),
	},
	models.PurposePasswordReset: {
		subject: "Your Dovol password reset code",
		text: template.Must(template.New("reset.txt").Parse(
			"We received a request to reset your Dovol password.\n\nYour reset code is {{.Code}}.\nIt expires in {{.Validity}}.\n\nIf you did not ask for this, ignore this email.\n")),
		html: htmltemplate.Must(htmltemplate.New("reset.html").Parse(
			`<p>We received a request to reset your Dovol password.</p><p>Your reset code is <strong>{{.Code}}</strong>.</p><p>It expires in {{.Validity}}.</p><p>If you did not ask for this, ignore this email.</p>`)),
	},
}

// render returns subject, plain text and HTML bodies for purpose.
func render(purpose models.Purpose, data messageData) (string, string, string, error) {
	tpl, ok := templates[purpose]
	if !ok {
		return "", "", "", fmt.Errorf("no template for purpose %q", purpose)
	}

	var text, html bytes.Buffer
	if err := tpl.text.Execute(&text, data); err != nil {
		return "", "", "", err
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return "", "", "", err
	}
	return tpl.subject, text.String(), html.String(), nil
}
