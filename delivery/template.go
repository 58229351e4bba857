package delivery

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

var ErrTemplateInvalid = errors.New("delivery: invalid template")

// CodeMessage is the data available to code templates.
type CodeMessage struct {
	Code             string
	ExpiresInMinutes int
	AppName          string
}

const defaultTextTemplate = `Hello,

You requested a verification code{{if .AppName}} for {{.AppName}}{{end}}.

Your code: {{.Code}}

This code expires in {{.ExpiresInMinutes}} minutes.

If you did not request this code, ignore this message.
`

// Renderer turns a code into a deliverable Body. When an HTML template is
// configured the body is HTML; otherwise the plain-text template is used.
// The decision is made here, once, so the sender always receives a body
// whose MIME type matches its content.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer) error

// WithHTMLTemplate installs an HTML body template parsed from src.
func WithHTMLTemplate(src string) RendererOption {
	return func(r *Renderer) error {
		tmpl, err := htmltemplate.New("code_html").Parse(src)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
		}
		r.html = tmpl
		return nil
	}
}

// WithTextTemplate replaces the default plain-text template.
func WithTextTemplate(src string) RendererOption {
	return func(r *Renderer) error {
		tmpl, err := texttemplate.New("code_text").Parse(src)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
		}
		r.text = tmpl
		return nil
	}
}

// NewRenderer builds a Renderer. Template parse failures are configuration
// errors and surface here, not at send time.
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	r := &Renderer{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.text == nil {
		tmpl, err := texttemplate.New("code_text").Parse(defaultTextTemplate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
		}
		r.text = tmpl
	}
	return r, nil
}

// Render produces the body for msg.
func (r *Renderer) Render(msg CodeMessage) (Body, error) {
	if r.html != nil {
		var b strings.Builder
		if err := r.html.Execute(&b, msg); err != nil {
			return Body{}, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
		}
		return Body{Content: b.String(), ContentType: ContentTypeHTML}, nil
	}

	var b strings.Builder
	if err := r.text.Execute(&b, msg); err != nil {
		return Body{}, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}
	return Body{Content: b.String(), ContentType: ContentTypeText}, nil
}
