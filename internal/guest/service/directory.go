package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/pkg/db/pagination"
)

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return domain.SearchResponse{}, domain.ErrInvalidStatus
	}

	filter := domain.SearchFilter{
		Text:            strings.TrimSpace(req.Text),
		Status:          req.Status,
		LinkedOnly:      req.LinkedOnly,
		IncludeArchived: req.IncludeArchived,
	}
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}

	items, err := s.repo.Search(ctx, s.db, filter, page)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	size := page.Size()
	pageInfo := pagination.BuildCursorPageInfo(items, size, func(g *domain.Guest) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        g.ID.String(),
			CreatedAt: g.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > size {
		items = items[:size]
	}

	guests := make([]domain.Guest, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		guests = append(guests, *item)
	}

	return domain.SearchResponse{PageInfo: pageInfo, Guests: guests}, nil
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	return s.repo.Summary(ctx, s.db)
}

func (s *Service) History(ctx context.Context, guestID string) ([]domain.HistoryEntry, error) {
	id, err := s.parseID(guestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, s.db, id)
}

func (s *Service) Communications(ctx context.Context, guestID string) ([]domain.CommunicationLogEntry, error) {
	id, err := s.parseID(guestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.repo.ListCommunications(ctx, s.db, id)
}
