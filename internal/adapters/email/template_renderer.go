package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"

	"ticketinventory/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// reservationTemplates lists every template a reservation notification can ask for.
var reservationTemplates = []string{
	domain.EmailTemplateReservationBooked,
	domain.EmailTemplateReservationCancelled,
}

// messageTemplate is one parsed subject/html/text triple.
type messageTemplate struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type templateRenderer struct {
	templates map[string]messageTemplate
}

// NewTemplateRenderer parses the embedded reservation templates once. It fails when any
// notification kind lacks its subject, html or text file, so a broken build surfaces at
// startup rather than on the first booking.
func NewTemplateRenderer() (domain.EmailTemplateRenderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return newTemplateRenderer(sub, reservationTemplates...)
}

func newTemplateRenderer(fsys fs.FS, names ...string) (*templateRenderer, error) {
	r := &templateRenderer{templates: make(map[string]messageTemplate, len(names))}
	for _, name := range names {
		var (
			mt  messageTemplate
			err error
		)
		if mt.subject, err = parseText(fsys, name+"_subject.txt"); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		if mt.text, err = parseText(fsys, name+".txt"); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		if mt.html, err = parseHTML(fsys, name+".html"); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		r.templates[name] = mt
	}
	return r, nil
}

// Render executes the named template with data. Only templates parsed at construction are known.
func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	mt, ok := r.templates[templateName]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", templateName)
	}
	var buf bytes.Buffer
	if err := mt.subject.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := mt.html.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	htmlBody = buf.String()

	buf.Reset()
	if err := mt.text.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return subject, htmlBody, buf.String(), nil
}

func parseText(fsys fs.FS, file string) (*texttemplate.Template, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}
	return texttemplate.New(file).Option("missingkey=error").Parse(string(raw))
}

func parseHTML(fsys fs.FS, file string) (*htmltemplate.Template, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}
	return htmltemplate.New(file).Option("missingkey=error").Parse(string(raw))
}
