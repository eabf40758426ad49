package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/guestlist/internal/accountcontext"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
)

type registerRequest struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	RSVPDeadline *time.Time `json:"rsvp_deadline"`
}

type rsvpRequest struct {
	Status  string                       `json:"status"`
	Details *guestdomain.ResponsePayload `json:"details"`
}

func (s *Server) GetMe(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guest})
}

// RegisterMe creates a guest record for an account that has none yet.
func (s *Server) RegisterMe(c *gin.Context) {
	accountID, ok := accountcontext.IDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	guest, err := s.guestSvc.Create(c.Request.Context(), guestdomain.CreateGuestRequest{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		RSVPDeadline:    req.RSVPDeadline,
		LinkedAccountID: accountID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": guest})
}

func (s *Server) SubmitMyResponse(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req rsvpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.guestSvc.SubmitResponse(c.Request.Context(), guestdomain.SubmitResponseRequest{
		GuestID: guest.ID.String(),
		Status:  guestdomain.RSVPStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Payload: req.Details,
		Method:  guestdomain.MethodGuestForm,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetMyHistory(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.guestSvc.History(c.Request.Context(), guest.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
