package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/clock"
	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/guest/repository"
	notificationdomain "github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/smallbiznis/guestlist/pkg/db/dbtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testStart = time.Date(2027, 5, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notificationdomain.Message
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notificationdomain.Message) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg.DispatchID == "" {
		msg.DispatchID = fmt.Sprintf("dispatch-%d", len(n.msgs)+1)
	}
	n.msgs = append(n.msgs, msg)
	return msg.DispatchID
}

func (n *recordingNotifier) Messages() []notificationdomain.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notificationdomain.Message(nil), n.msgs...)
}

type stubLock struct {
	mu       sync.Mutex
	deny     bool
	released []string
}

func (l *stubLock) TryLockReminders(ctx context.Context) (string, bool, error) {
	if l.deny {
		return "", false, nil
	}
	return "token-1", true, nil
}

func (l *stubLock) ReleaseReminders(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, token)
	return nil
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	clock    *clock.FakeClock
	notifier *recordingNotifier
	node     *snowflake.Node
	repo     domain.Repository
}

type fixtureOption func(*Params)

func withRepo(repo domain.Repository) fixtureOption {
	return func(p *Params) { p.Repo = repo }
}

func withLock(lock domain.ReminderLock) fixtureOption {
	return func(p *Params) { p.Lock = lock }
}

func withEvent(cfg config.EventConfig) fixtureOption {
	return func(p *Params) { p.Events = config.NewStaticEventConfigHolder(cfg) }
}

func setupGuestService(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	db := dbtest.Open(t, &domain.Guest{}, &domain.HistoryEntry{}, &domain.CommunicationLogEntry{})
	node := mustNode(t)
	clk := clock.NewFakeClock(testStart)
	notifier := &recordingNotifier{}

	p := Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Clock:    clk,
		Notifier: notifier,
	}
	for _, opt := range opts {
		opt(&p)
	}

	return &fixture{
		svc:      newService(p),
		db:       db,
		clock:    clk,
		notifier: notifier,
		node:     node,
		repo:     p.Repo,
	}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func (f *fixture) createGuest(t *testing.T, name, email string) domain.Guest {
	t.Helper()
	g, err := f.svc.Create(context.Background(), domain.CreateGuestRequest{Name: name, Email: email})
	if err != nil {
		t.Fatalf("create guest %s: %v", name, err)
	}
	return g
}

func (f *fixture) countRows(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	stmt := f.db.Model(model)
	if query != "" {
		stmt = stmt.Where(query, args...)
	}
	if err := stmt.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
