// Package messaging provides the outbound SMS/email boundary for patient
// outreach, with template rendering and a demo sender used when no
// provider credentials are configured.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Channels
// ---------------------------------------------------------------------------

// Channel represents the delivery channel for an outreach message.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Valid reports whether the channel is one the service can dispatch on.
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// ---------------------------------------------------------------------------
// Sender
// ---------------------------------------------------------------------------

// Sender delivers a rendered message to a recipient and returns the
// provider-assigned message ID. Implementations wrap a real provider or
// the demo fallback.
type Sender interface {
	Send(ctx context.Context, channel Channel, to, body string) (providerMessageID string, err error)
}

// ---------------------------------------------------------------------------
// Demo Sender
// ---------------------------------------------------------------------------

// DemoSender simulates delivery without contacting a provider. It is the
// default when no provider credentials are configured, so the full
// outreach lifecycle can be exercised in development.
type DemoSender struct{}

// Send returns a synthetic provider message ID per channel.
func (DemoSender) Send(_ context.Context, channel Channel, _, _ string) (string, error) {
	switch channel {
	case ChannelSMS:
		return "demo-sms-id", nil
	case ChannelEmail:
		return "demo-email-id", nil
	default:
		return "", fmt.Errorf("unsupported channel: %s", channel)
	}
}

// ---------------------------------------------------------------------------
// Mock Sender (test double)
// ---------------------------------------------------------------------------

// SendCall records a single call to Send.
type SendCall struct {
	Channel Channel
	To      string
	Body    string
}

// MockSender is a test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []SendCall
	ShouldFail bool
	FailError  string
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, channel Channel, to, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SendCall{Channel: channel, To: to, Body: body})
	if m.ShouldFail {
		return "", errors.New(m.FailError)
	}
	return fmt.Sprintf("mock-%s-%d", channel, len(m.calls)), nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable outreach message template.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// TemplateEngine manages outreach templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:   "outreach-default",
			Name: "Outreach Invitation",
			Body: "Hi {{first_name}}, your care team would like a quick update for your {{measure}} check. Tap here to respond: {{link}}",
		},
		{
			ID:   "outreach-CBP",
			Name: "Blood Pressure Check",
			Body: "Hi {{first_name}}, it's time for your blood pressure check. Share a recent reading in under a minute: {{link}}",
		},
		{
			ID:   "outreach-DM_A1C",
			Name: "A1c Follow-up",
			Body: "Hi {{first_name}}, your care team is following up on your diabetes A1c. Let us know how you're doing: {{link}}",
		},
		{
			ID:   "outreach-STATIN",
			Name: "Statin Adherence Check",
			Body: "Hi {{first_name}}, a quick check-in about your cholesterol medication: {{link}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using
// the supplied data map. Keys present in the template but absent from
// data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// RenderOutreach renders the measure-specific outreach template, falling
// back to the default template when the measure has no dedicated one.
func (e *TemplateEngine) RenderOutreach(measureCode string, data map[string]string) (string, error) {
	id := "outreach-" + measureCode
	e.mu.RLock()
	_, ok := e.templates[id]
	e.mu.RUnlock()
	if !ok {
		id = "outreach-default"
	}
	return e.Render(id, data)
}
