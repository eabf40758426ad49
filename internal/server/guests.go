package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/pkg/db/pagination"
)

type createGuestRequest struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	RSVPDeadline    *time.Time `json:"rsvp_deadline"`
	TableAssignment string     `json:"table_assignment"`
}

type overrideStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type linkAccountRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Server) CreateGuest(c *gin.Context) {
	var req createGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	guest, err := s.guestSvc.Create(c.Request.Context(), guestdomain.CreateGuestRequest{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		RSVPDeadline:    req.RSVPDeadline,
		TableAssignment: strings.TrimSpace(req.TableAssignment),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": guest})
}

func (s *Server) SearchGuests(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Text            string `form:"q"`
		Status          string `form:"status"`
		LinkedOnly      string `form:"linked_only"`
		IncludeArchived string `form:"include_archived"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	linkedOnly, err := parseOptionalBool(query.LinkedOnly)
	if err != nil {
		AbortWithError(c, newValidationError("linked_only", "invalid_linked_only"))
		return
	}
	includeArchived, err := parseOptionalBool(query.IncludeArchived)
	if err != nil {
		AbortWithError(c, newValidationError("include_archived", "invalid_include_archived"))
		return
	}

	resp, err := s.guestSvc.Search(c.Request.Context(), guestdomain.SearchRequest{
		Text:            strings.TrimSpace(query.Text),
		Status:          guestdomain.RSVPStatus(strings.ToLower(strings.TrimSpace(query.Status))),
		LinkedOnly:      boolValue(linkedOnly),
		IncludeArchived: boolValue(includeArchived),
		PageToken:       query.PageToken,
		PageSize:        query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGuestSummary(c *gin.Context) {
	summary, err := s.guestSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetGuestByID(c *gin.Context) {
	guest, err := s.guestSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guest})
}

func (s *Server) GetGuestHistory(c *gin.Context) {
	entries, err := s.guestSvc.History(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) GetGuestCommunications(c *gin.Context) {
	entries, err := s.guestSvc.Communications(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) OverrideGuestStatus(c *gin.Context) {
	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.guestSvc.OverrideStatus(c.Request.Context(), guestdomain.OverrideStatusRequest{
		GuestID: strings.TrimSpace(c.Param("id")),
		Status:  guestdomain.RSVPStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) LinkGuestAccount(c *gin.Context) {
	var req linkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	guest, err := s.guestSvc.LinkAccount(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.AccountID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guest})
}

func (s *Server) UnlinkGuestAccount(c *gin.Context) {
	guest, err := s.guestSvc.UnlinkAccount(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guest})
}

func (s *Server) ArchiveGuest(c *gin.Context) {
	guest, err := s.guestSvc.Archive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guest})
}

func (s *Server) RestoreGuest(c *gin.Context) {
	guest, err := s.guestSvc.Restore(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guest})
}

func (s *Server) SendReminders(c *gin.Context) {
	result, err := s.guestSvc.SendReminders(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
