package whatsapp

import (
	"context"
	"errors"
	"testing"

	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		raw, prefix, want string
	}{
		{"+62 812-3456-7890", "62", "6281234567890"},
		{"0812 3456 7890", "62", "6281234567890"},
		{"0812 3456 7890", "", "081234567890"},
		{"0062 812 3456 7890", "62", "6281234567890"},
		{"+62 0812 3456 7890", "+62", "6281234567890"},
		{"(555) 010-9999", "1", "5550109999"},
		{"", "62", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhoneNumber(tc.raw, tc.prefix), tc.raw)
	}
}

func TestSenderPhone(t *testing.T) {
	assert.Equal(t, "+6281234567890", senderPhone(types.NewJID("6281234567890", types.DefaultUserServer)))
	assert.Equal(t, "", senderPhone(types.NewJID("1234", types.HiddenUserServer)))
	assert.Equal(t, "", senderPhone(types.JID{}))
}

type fakeMessenger struct {
	registered bool
	checked    []string
	sentTo     []types.JID
	sentText   []string
	sendErr    error
}

func (f *fakeMessenger) IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error) {
	f.checked = append(f.checked, phones...)
	jid := types.NewJID(phones[0][1:], types.DefaultUserServer)
	return []types.IsOnWhatsAppResponse{{Query: phones[0], JID: jid, IsIn: f.registered}}, nil
}

func (f *fakeMessenger) SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	if f.sendErr != nil {
		return whatsmeow.SendResponse{}, f.sendErr
	}
	f.sentTo = append(f.sentTo, to)
	f.sentText = append(f.sentText, message.GetConversation())
	return whatsmeow.SendResponse{ID: "MSG1"}, nil
}

func TestSendTextVerifiesNumber(t *testing.T) {
	fake := &fakeMessenger{registered: true}
	c := newClient(Config{CountryPrefix: "62"}, zap.NewNop(), fake)

	require.NoError(t, c.SendText(context.Background(), "0812-3456-7890", "hello"))
	assert.Equal(t, []string{"+6281234567890"}, fake.checked)
	require.Len(t, fake.sentTo, 1)
	assert.Equal(t, "6281234567890", fake.sentTo[0].User)
	assert.Equal(t, []string{"hello"}, fake.sentText)

	fake.registered = false
	assert.ErrorIs(t, c.SendText(context.Background(), "+6281111111", "hello"), ErrNotOnWhatsApp)
	assert.Error(t, c.SendText(context.Background(), "n/a", "hello"))
}

func TestChannelFormatsMessage(t *testing.T) {
	fake := &fakeMessenger{registered: true}
	ch := NewChannel(newClient(Config{}, zap.NewNop(), fake))

	assert.Equal(t, "whatsapp", ch.Name())
	assert.False(t, ch.Accepts(domain.Recipient{Email: "ana@example.com"}))
	require.True(t, ch.Accepts(domain.Recipient{Phone: "+6281234567890"}))

	err := ch.Send(context.Background(), domain.Message{
		Recipient: domain.Recipient{Phone: "+6281234567890"},
		Subject:   "RSVP reminder",
		Body:      "Reply YES or NO",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"*RSVP reminder*\n\nReply YES or NO"}, fake.sentText)

	fake.sendErr = errors.New("socket closed")
	assert.Error(t, ch.Send(context.Background(), domain.Message{Recipient: domain.Recipient{Phone: "+6281234567890"}}))
}

type recordingReplies struct {
	replies []guestdomain.InboundReply
	err     error
}

func (r *recordingReplies) HandleInboundReply(ctx context.Context, reply guestdomain.InboundReply) (guestdomain.TransitionResult, error) {
	r.replies = append(r.replies, reply)
	return guestdomain.TransitionResult{}, r.err
}

func inbound(sender types.JID, text string, fromMe bool) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Sender: sender, IsFromMe: fromMe},
		},
		Message: &waE2E.Message{Conversation: &text},
	}
}

func TestHandleMessageRoutesReplies(t *testing.T) {
	c := newClient(Config{}, zap.NewNop(), &fakeMessenger{})
	replies := &recordingReplies{}
	sender := types.NewJID("6281234567890", types.DefaultUserServer)

	c.handleMessage(context.Background(), inbound(sender, "yes", false))
	assert.Empty(t, replies.replies, "no handler registered yet")

	c.SetReplyHandler(replies)
	c.handleMessage(context.Background(), inbound(sender, "  YES  ", false))
	c.handleMessage(context.Background(), inbound(sender, "no", true))
	c.handleMessage(context.Background(), inbound(types.NewJID("99", types.HiddenUserServer), "no", false))
	c.handleMessage(context.Background(), inbound(sender, "   ", false))

	require.Len(t, replies.replies, 1)
	assert.Equal(t, guestdomain.InboundReply{Phone: "+6281234567890", Text: "YES"}, replies.replies[0])

	replies.err = guestdomain.ErrUnrecognizedReply
	c.handleMessage(context.Background(), inbound(sender, "maybe", false))
	assert.Len(t, replies.replies, 2)
}

func TestMessageTextFallsBackToExtendedText(t *testing.T) {
	text := "  count me in  "
	msg := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: &text}}
	assert.Equal(t, "count me in", messageText(msg))
}

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newZapLogger(zap.New(core))

	l.Infof("connected as %s", "device-1")
	l.Sub("store").Warnf("slow query %dms", 120)
	l.Debugf("frame %d", 7)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "connected as device-1", entries[0].Message)
	assert.Equal(t, "store", entries[1].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "frame 7", entries[2].Message)

	quiet, quietLogs := observer.New(zapcore.InfoLevel)
	newZapLogger(zap.New(quiet)).Debugf("dropped")
	assert.Zero(t, quietLogs.Len())
}
