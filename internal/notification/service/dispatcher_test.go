package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	name   string
	accept func(domain.Recipient) bool
	err    error

	mu   sync.Mutex
	sent []domain.Message
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Accepts(r domain.Recipient) bool { return c.accept(r) }

func (c *fakeChannel) Send(ctx context.Context, msg domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.err
}

type delivery struct {
	dispatchID string
	channel    string
	err        error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []delivery
}

func (r *fakeRecorder) RecordDelivery(ctx context.Context, msg domain.Message, channel string, sendErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, delivery{dispatchID: msg.DispatchID, channel: channel, err: sendErr})
	return nil
}

func waitAll(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func TestNotifyFansOutToAcceptingChannels(t *testing.T) {
	email := &fakeChannel{name: "email", accept: func(r domain.Recipient) bool { return r.Email != "" }}
	chat := &fakeChannel{name: "whatsapp", accept: func(r domain.Recipient) bool { return r.Phone != "" }, err: errors.New("offline")}
	recorder := &fakeRecorder{}
	d := New(Params{Log: zap.NewNop(), Channels: []domain.Channel{email, chat, nil}, Recorder: recorder})

	id := d.Notify(context.Background(), domain.Message{
		Kind:      domain.KindRSVPConfirmation,
		Recipient: domain.Recipient{GuestID: 1, Email: "ana@example.com", Phone: "+15550001111"},
	})
	waitAll(t, d)

	require.NotEmpty(t, id)
	require.Len(t, email.sent, 1)
	require.Equal(t, id, email.sent[0].DispatchID)
	require.Len(t, chat.sent, 1)

	require.Len(t, recorder.calls, 2)
	byChannel := map[string]error{}
	for _, c := range recorder.calls {
		require.Equal(t, id, c.dispatchID)
		byChannel[c.channel] = c.err
	}
	require.NoError(t, byChannel["email"])
	require.Error(t, byChannel["whatsapp"])
}

func TestNotifyKeepsGivenDispatchID(t *testing.T) {
	d := New(Params{Log: zap.NewNop()})
	require.Equal(t, "fixed", d.Notify(context.Background(), domain.Message{DispatchID: "fixed"}))
	waitAll(t, d)
}

func TestNotifyRecordsUnreachableRecipient(t *testing.T) {
	email := &fakeChannel{name: "email", accept: func(r domain.Recipient) bool { return r.Email != "" }}
	recorder := &fakeRecorder{}
	d := New(Params{Log: zap.NewNop(), Channels: []domain.Channel{email}, Recorder: recorder})

	d.Notify(context.Background(), domain.Message{Recipient: domain.Recipient{GuestID: 2}})
	waitAll(t, d)

	require.Empty(t, email.sent)
	require.Len(t, recorder.calls, 1)
	require.Equal(t, "none", recorder.calls[0].channel)
	require.ErrorIs(t, recorder.calls[0].err, domain.ErrNoChannel)
}

func TestNotifySurvivesCancelledCaller(t *testing.T) {
	email := &fakeChannel{name: "email", accept: func(domain.Recipient) bool { return true }}
	d := New(Params{Log: zap.NewNop(), Channels: []domain.Channel{email}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, domain.Message{Recipient: domain.Recipient{Email: "x@example.com"}})
	waitAll(t, d)

	require.Len(t, email.sent, 1)
}
