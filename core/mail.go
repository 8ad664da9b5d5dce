package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

var (
	templates = make(tmplCache)
	tmplMu    sync.RWMutex
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// RegisterEmailTemplate parses and registers the text and html bodies of a templated email.
// An empty html body registers a text-only template.
func RegisterEmailTemplate(name, text, html string) error {
	entry := tmplCacheEntry{}
	var err error
	if entry.text, err = texttmpl.New(name).Option("missingkey=error").Parse(text); err != nil {
		return errors.Wrapf(err, "parsing %s text template", name)
	}
	if html != "" {
		if entry.html, err = htmltmpl.New(name).Option("missingkey=error").Parse(html); err != nil {
			return errors.Wrapf(err, "parsing %s html template", name)
		}
	}

	tmplMu.Lock()
	templates[name] = entry
	tmplMu.Unlock()
	return nil
}

func (m *EmailMessage) getTemplate() (tmplCacheEntry, bool) {
	tmplMu.RLock()
	defer tmplMu.RUnlock()
	entry, ok := templates[m.TemplateName]
	return entry, ok
}

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	entry, ok := m.getTemplate()
	if !ok {
		return errors.Errorf("email template %q not registered", m.TemplateName)
	}

	var buff bytes.Buffer
	if err := entry.text.Execute(&buff, m.TemplateData); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	m.TextContent = buff.String()

	if entry.html != nil {
		buff.Reset()
		if err := entry.html.Execute(&buff, m.TemplateData); err != nil {
			return errors.Wrap(err, "rendering html")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
