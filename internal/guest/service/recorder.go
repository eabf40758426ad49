package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/clock"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	notificationdomain "github.com/smallbiznis/guestlist/internal/notification/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type RecorderParams struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

// DeliveryRecorder writes notification outcomes to the communication log.
// A queued entry carrying the dispatch id is completed by the first channel
// to report; every other channel gets its own entry. An unreachable
// recipient only fails a queued entry and never adds one, since nothing was
// sent.
type DeliveryRecorder struct {
	db    *gorm.DB
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewDeliveryRecorder(p RecorderParams) notificationdomain.DeliveryRecorder {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &DeliveryRecorder{db: p.DB, genID: p.GenID, repo: p.Repo, clock: clk}
}

func (r *DeliveryRecorder) RecordDelivery(ctx context.Context, msg notificationdomain.Message, channel string, sendErr error) error {
	if msg.Recipient.GuestID == 0 {
		return nil
	}
	status := domain.CommStatusSent
	if sendErr != nil {
		status = domain.CommStatusFailed
	}

	if msg.DispatchID != "" {
		updated, err := r.repo.UpdateCommunicationStatus(ctx, r.db, msg.DispatchID, channel, status)
		if err != nil {
			return err
		}
		if updated > 0 {
			return nil
		}
	}
	if errors.Is(sendErr, notificationdomain.ErrNoChannel) {
		return nil
	}

	entry := domain.CommunicationLogEntry{
		ID:        r.genID.Generate(),
		GuestID:   msg.Recipient.GuestID,
		Direction: domain.DirectionOutbound,
		Type:      msg.Kind,
		Channel:   &channel,
		Content:   msg.Body,
		Status:    status,
		CreatedAt: r.clock.Now(),
	}
	if msg.Subject != "" {
		subject := msg.Subject
		entry.Subject = &subject
	}
	if msg.DispatchID != "" {
		dispatchID := msg.DispatchID
		entry.DispatchID = &dispatchID
	}
	return r.repo.InsertCommunication(ctx, r.db, &entry)
}
