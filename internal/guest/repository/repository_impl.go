package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"github.com/smallbiznis/guestlist/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, guest *domain.Guest) error {
	return db.WithContext(ctx).Create(guest).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Guest, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Guest, error) {
	return first(dbpkg.ForUpdate(db.WithContext(ctx)).Where("id = ?", id))
}

func (r *repo) FindByAccount(ctx context.Context, db *gorm.DB, accountID string) (*domain.Guest, error) {
	return first(db.WithContext(ctx).Where("linked_account_id = ?", accountID))
}

// FindByPhone prefers an active guest when several rows share a number.
func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, candidates []string) (*domain.Guest, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	return first(db.WithContext(ctx).
		Where("phone IN ?", candidates).
		Order("is_archived asc, created_at asc"))
}

func first(stmt *gorm.DB) (*domain.Guest, error) {
	var guest domain.Guest
	err := stmt.Limit(1).Take(&guest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *repo) ListAddedBy(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]domain.Guest, error) {
	var guests []domain.Guest
	err := db.WithContext(ctx).
		Where("added_by_guest_id = ?", guestID).
		Order("created_at asc, id asc").
		Find(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Guest{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.HistoryEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("changed_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) InsertCommunication(ctx context.Context, db *gorm.DB, entry *domain.CommunicationLogEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) UpdateCommunicationStatus(ctx context.Context, db *gorm.DB, dispatchID, channel, status string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE communication_log_entries SET status = ?, channel = ?
		 WHERE dispatch_id = ? AND channel IS NULL`,
		status,
		channel,
		dispatchID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListCommunications(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]domain.CommunicationLogEntry, error) {
	var entries []domain.CommunicationLogEntry
	err := db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, filter domain.SearchFilter, page pagination.Pagination) ([]*domain.Guest, error) {
	stmt := db.WithContext(ctx).Model(&domain.Guest{})

	if text := strings.ToLower(strings.TrimSpace(filter.Text)); text != "" {
		like := "%" + escapeLike(text) + "%"
		stmt = stmt.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')", like, like)
	}
	if filter.Status != "" {
		stmt = stmt.Where("rsvp_status = ?", filter.Status)
	}
	if filter.LinkedOnly {
		stmt = stmt.Where("linked_account_id IS NOT NULL")
	}
	if !filter.IncludeArchived {
		stmt = stmt.Where("is_archived = ?", false)
	}

	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, err
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		createdAt = createdAt.UTC()
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
	}

	var guests []*domain.Guest
	err := stmt.
		Order("created_at desc, id desc").
		Limit(page.Size() + 1).
		Find(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func (r *repo) Summary(ctx context.Context, db *gorm.DB) (domain.Summary, error) {
	var rows []struct {
		RSVPStatus domain.RSVPStatus `gorm:"column:rsvp_status"`
		IsArchived bool
		Count      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Guest{}).
		Select("rsvp_status, is_archived, COUNT(*) AS count").
		Group("rsvp_status, is_archived").
		Scan(&rows).Error
	if err != nil {
		return domain.Summary{}, err
	}

	var summary domain.Summary
	for _, row := range rows {
		if row.IsArchived {
			summary.Archived += row.Count
			continue
		}
		summary.Total += row.Count
		switch row.RSVPStatus {
		case domain.StatusPending:
			summary.Pending += row.Count
		case domain.StatusConfirmed:
			summary.Confirmed += row.Count
		case domain.StatusDeclined:
			summary.Declined += row.Count
		}
	}

	err = db.WithContext(ctx).
		Model(&domain.Guest{}).
		Where("is_archived = ? AND linked_account_id IS NOT NULL", false).
		Count(&summary.Linked).Error
	if err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (r *repo) ListReminderCandidates(ctx context.Context, db *gorm.DB, q domain.ReminderQuery) ([]domain.Guest, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Guest{}).
		Where("rsvp_status = ? AND is_archived = ?", domain.StatusPending, false)

	if q.IncludeWithoutDeadline {
		stmt = stmt.Where("(rsvp_deadline IS NULL OR (rsvp_deadline > ? AND rsvp_deadline <= ?))", q.Now, q.Cutoff)
	} else {
		stmt = stmt.Where("rsvp_deadline > ? AND rsvp_deadline <= ?", q.Now, q.Cutoff)
	}

	stmt = stmt.Where(
		`NOT EXISTS (SELECT 1 FROM communication_log_entries c
		 WHERE c.guest_id = guests.id AND c.type = ? AND c.created_at >= ?)`,
		domain.CommRSVPReminder,
		q.RemindedSince,
	)

	if q.Limit > 0 {
		stmt = stmt.Limit(q.Limit)
	}

	var guests []domain.Guest
	if err := stmt.Order("rsvp_deadline asc, id asc").Find(&guests).Error; err != nil {
		return nil, err
	}
	return guests, nil
}
