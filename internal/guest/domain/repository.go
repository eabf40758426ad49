package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, guest *Guest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Guest, error)
	// FindByIDForUpdate locks the row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Guest, error)
	FindByAccount(ctx context.Context, db *gorm.DB, accountID string) (*Guest, error)
	FindByPhone(ctx context.Context, db *gorm.DB, candidates []string) (*Guest, error)
	// ListAddedBy returns guests disclosed by the given guest's submissions.
	ListAddedBy(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]Guest, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	InsertHistory(ctx context.Context, db *gorm.DB, entry *HistoryEntry) error
	ListHistory(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]HistoryEntry, error)

	InsertCommunication(ctx context.Context, db *gorm.DB, entry *CommunicationLogEntry) error
	UpdateCommunicationStatus(ctx context.Context, db *gorm.DB, dispatchID, channel, status string) (int64, error)
	ListCommunications(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]CommunicationLogEntry, error)

	Search(ctx context.Context, db *gorm.DB, filter SearchFilter, page pagination.Pagination) ([]*Guest, error)
	Summary(ctx context.Context, db *gorm.DB) (Summary, error)
	ListReminderCandidates(ctx context.Context, db *gorm.DB, q ReminderQuery) ([]Guest, error)
}

type ReminderQuery struct {
	Now                    time.Time
	Cutoff                 time.Time
	IncludeWithoutDeadline bool
	// RemindedSince excludes guests already reminded at or after this time.
	RemindedSince time.Time
	Limit         int
}
