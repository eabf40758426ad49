package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/skip2/go-qrcode"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

const qrFileName = "login-qr.png"

var ErrNotOnWhatsApp = errors.New("whatsapp_number_not_registered")

// messenger is the part of the whatsmeow client the provider uses.
type messenger interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// ReplyHandler applies a guest's WhatsApp reply to their RSVP.
type ReplyHandler interface {
	HandleInboundReply(ctx context.Context, reply guestdomain.InboundReply) (guestdomain.TransitionResult, error)
}

type Config struct {
	DataDir       string
	CountryPrefix string
}

type Client struct {
	cfg    Config
	log    *zap.Logger
	wa     *whatsmeow.Client
	sender messenger

	mu      sync.RWMutex
	replies ReplyHandler
}

// NewClient opens the device store under cfg.DataDir and prepares a client.
// Nothing connects until Connect.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create whatsapp data dir: %w", err)
	}
	waLogger := newZapLogger(log.Named("whatsmeow"))

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLogger.Sub("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to create device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	wa := whatsmeow.NewClient(device, waLogger.Sub("client"))
	c := newClient(cfg, log, wa)
	c.wa = wa
	wa.AddEventHandler(c.handleEvent)
	return c, nil
}

func newClient(cfg Config, log *zap.Logger, sender messenger) *Client {
	return &Client{
		cfg:    cfg,
		log:    log.Named("whatsapp"),
		sender: sender,
	}
}

func (c *Client) SetReplyHandler(h ReplyHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = h
}

// Connect logs in with the stored session, or starts QR pairing when the
// device has never been linked. The QR code is written as a PNG into the
// data dir and printed to the log.
func (c *Client) Connect(ctx context.Context) error {
	if c.wa.Store.ID != nil {
		return c.wa.Connect()
	}

	qrChan, err := c.wa.GetQRChannel(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("failed to get qr channel: %w", err)
	}
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	go c.watchPairing(qrChan)
	return nil
}

func (c *Client) watchPairing(qrChan <-chan whatsmeow.QRChannelItem) {
	path := filepath.Join(c.cfg.DataDir, qrFileName)
	for item := range qrChan {
		if item.Event != whatsmeow.QRChannelEventCode {
			c.log.Info("whatsapp pairing event", zap.String("event", item.Event))
			continue
		}
		q, err := qrcode.New(item.Code, qrcode.Medium)
		if err != nil {
			c.log.Warn("render pairing qr", zap.Error(err))
			continue
		}
		if err := q.WriteFile(256, path); err != nil {
			c.log.Warn("write pairing qr", zap.Error(err))
		}
		c.log.Info("scan the qr code with WhatsApp > Linked Devices",
			zap.String("qr_file", path),
			zap.String("qr", "\n"+q.ToSmallString(false)),
		)
	}
	_ = os.Remove(path)
}

func (c *Client) Disconnect() {
	if c.wa != nil {
		c.wa.Disconnect()
	}
}

// SendText delivers text to a phone number after checking the number is
// registered on WhatsApp.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	number := NormalizePhoneNumber(phone, c.cfg.CountryPrefix)
	if number == "" {
		return fmt.Errorf("whatsapp: empty phone number")
	}

	resp, err := c.sender.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return ErrNotOnWhatsApp
	}

	sent, err := c.sender.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &text})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.log.Debug("whatsapp message sent",
		zap.String("message_id", sent.ID),
		zap.String("jid", resp[0].JID.String()),
	)
	return nil
}

func (c *Client) handleEvent(evt any) {
	switch evt := evt.(type) {
	case *events.Message:
		c.handleMessage(context.Background(), evt)
	case *events.Connected:
		c.log.Info("connected to whatsapp")
	case *events.Disconnected:
		c.log.Info("disconnected from whatsapp")
	case *events.LoggedOut:
		c.log.Warn("logged out from whatsapp", zap.String("reason", evt.Reason.String()))
	}
}

func (c *Client) handleMessage(ctx context.Context, msg *events.Message) {
	if msg == nil || msg.Message == nil || msg.Info.IsFromMe || msg.Info.IsGroup {
		return
	}
	text := messageText(msg.Message)
	if text == "" {
		return
	}
	phone := senderPhone(msg.Info.Sender)
	if phone == "" {
		c.log.Debug("ignoring message from non-phone sender", zap.String("sender", msg.Info.Sender.String()))
		return
	}

	c.mu.RLock()
	h := c.replies
	c.mu.RUnlock()
	if h == nil {
		return
	}

	result, err := h.HandleInboundReply(ctx, guestdomain.InboundReply{Phone: phone, Text: text})
	switch {
	case err == nil:
		c.log.Info("rsvp updated from whatsapp",
			zap.String("guest_id", result.Guest.ID.String()),
			zap.String("status", string(result.Guest.RSVPStatus)),
		)
	case errors.Is(err, guestdomain.ErrNotFound), errors.Is(err, guestdomain.ErrUnrecognizedReply):
		c.log.Debug("whatsapp message not applied", zap.Error(err))
	default:
		c.log.Warn("apply whatsapp reply", zap.Error(err))
	}
}

func messageText(m *waE2E.Message) string {
	if text := m.GetConversation(); text != "" {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(m.GetExtendedTextMessage().GetText())
}
