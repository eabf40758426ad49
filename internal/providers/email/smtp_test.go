package email

import (
	"context"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
	auth bool
}

func newCapturingProvider(cfg Config) (*SMTPProvider, *[]capturedMail) {
	var sent []capturedMail
	p := NewSMTP(cfg)
	p.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, capturedMail{addr: addr, from: from, to: to, msg: string(msg), auth: a != nil})
		return nil
	}
	return p, &sent
}

func TestSendBuildsHTMLMessage(t *testing.T) {
	p, sent := newCapturingProvider(Config{Host: "mail.local", Port: 2525, From: "rsvp@example.com"})

	err := p.Send(context.Background(), []string{"ana@example.com"}, "Hello\r\nBcc: x@evil", "<p>hi</p>")
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "mail.local:2525", got.addr)
	assert.Equal(t, "rsvp@example.com", got.from)
	assert.False(t, got.auth)
	assert.Contains(t, got.msg, "Subject: Hello  Bcc: x@evil\r\n")
	assert.Contains(t, got.msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(got.msg, "<p>hi</p>"))
}

func TestSendRequiresRecipient(t *testing.T) {
	p, _ := newCapturingProvider(Config{Host: "mail.local", Port: 25})
	assert.Error(t, p.Send(context.Background(), nil, "s", "b"))
}

func TestSendTemplateUsesBuiltin(t *testing.T) {
	p, sent := newCapturingProvider(Config{Host: "mail.local", Port: 25, Username: "u", Password: "p"})

	err := p.SendTemplate(context.Background(), []string{"ana@example.com"}, "rsvp_reminder", TemplateData{
		Subject:   "Reminder",
		GuestName: "Ana",
		EventName: "Ana & Ben",
		Body:      "Please reply <soon>",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.True(t, (*sent)[0].auth)
	assert.Contains(t, (*sent)[0].msg, "Hi Ana,")
	assert.Contains(t, (*sent)[0].msg, "Ana &amp; Ben")
	assert.Contains(t, (*sent)[0].msg, "Please reply &lt;soon&gt;")
}

func TestSendTemplatePrefersTemplateDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generic.html"), []byte("custom {{ .GuestName }}"), 0o600))

	p, sent := newCapturingProvider(Config{Host: "mail.local", Port: 25, TemplateDir: dir})
	require.NoError(t, p.SendTemplate(context.Background(), []string{"a@example.com"}, "generic", TemplateData{GuestName: "Ana"}))
	assert.True(t, strings.HasSuffix((*sent)[0].msg, "custom Ana"))

	assert.Error(t, p.SendTemplate(context.Background(), []string{"a@example.com"}, "missing", TemplateData{}))
}

func TestChannelRoutesByKind(t *testing.T) {
	p, sent := newCapturingProvider(Config{Host: "mail.local", Port: 25})
	ch := NewChannel(p, config.NewStaticEventConfigHolder(config.EventConfig{Name: "Garden Party"}))

	assert.Equal(t, "email", ch.Name())
	assert.False(t, ch.Accepts(domain.Recipient{Phone: "+6281234567"}))
	require.True(t, ch.Accepts(domain.Recipient{Email: "ana@example.com"}))

	err := ch.Send(context.Background(), domain.Message{
		Kind:      domain.KindRSVPConfirmation,
		Recipient: domain.Recipient{Name: "Ana", Email: "ana@example.com"},
		Body:      "See you there",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, "Subject: Garden Party\r\n")
	assert.Contains(t, (*sent)[0].msg, "You can change your response")
	assert.Equal(t, "generic", templateFor("something_else"))
}
