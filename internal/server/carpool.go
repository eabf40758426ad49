package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	carpooldomain "github.com/smallbiznis/guestlist/internal/carpool/domain"
)

type createOfferRequest struct {
	DepartureLocation  string    `json:"departure_location"`
	DepartureTime      time.Time `json:"departure_time"`
	AvailableSeats     int       `json:"available_seats"`
	VehicleDescription string    `json:"vehicle_description"`
	ContactPhone       string    `json:"contact_phone"`
	SpecialNotes       string    `json:"special_notes"`
}

type joinOfferRequest struct {
	PassengerName string `json:"passenger_name"`
}

func (s *Server) ListCarpoolOffers(c *gin.Context) {
	offers, err := s.carpoolSvc.ListActiveOffers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offers})
}

func (s *Server) GetCarpoolOffer(c *gin.Context) {
	offer, err := s.carpoolSvc.GetOffer(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offer})
}

func (s *Server) ListMyParticipations(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	participations, err := s.carpoolSvc.ListParticipations(c.Request.Context(), guest.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": participations})
}

func (s *Server) CreateMyOffer(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	offer, err := s.carpoolSvc.CreateOffer(c.Request.Context(), carpooldomain.CreateOfferRequest{
		DriverGuestID:      guest.ID.String(),
		DepartureLocation:  strings.TrimSpace(req.DepartureLocation),
		DepartureTime:      req.DepartureTime,
		AvailableSeats:     req.AvailableSeats,
		VehicleDescription: strings.TrimSpace(req.VehicleDescription),
		ContactPhone:       strings.TrimSpace(req.ContactPhone),
		SpecialNotes:       strings.TrimSpace(req.SpecialNotes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": offer})
}

// CancelMyOffer lets a driver withdraw their own offer.
func (s *Server) CancelMyOffer(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	offerID := strings.TrimSpace(c.Param("id"))
	detail, err := s.carpoolSvc.GetOffer(ctx, offerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.DriverGuestID != guest.ID {
		AbortWithError(c, ErrForbidden)
		return
	}

	offer, err := s.carpoolSvc.CancelOffer(ctx, offerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offer})
}

func (s *Server) JoinOffer(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req joinOfferRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	participant, err := s.carpoolSvc.JoinOffer(c.Request.Context(), carpooldomain.JoinOfferRequest{
		OfferID:       strings.TrimSpace(c.Param("id")),
		GuestID:       guest.ID.String(),
		PassengerName: strings.TrimSpace(req.PassengerName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": participant})
}

// CancelMyParticipation withdraws the caller from a carpool. Another guest's
// participation reads as not found.
func (s *Server) CancelMyParticipation(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	participantID := strings.TrimSpace(c.Param("id"))
	participant, err := s.carpoolSvc.GetParticipant(ctx, participantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if participant.ParticipantGuestID != guest.ID {
		AbortWithError(c, carpooldomain.ErrParticipantNotFound)
		return
	}

	if err := s.carpoolSvc.CancelParticipant(ctx, participantID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CancelOffer(c *gin.Context) {
	offer, err := s.carpoolSvc.CancelOffer(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offer})
}

func (s *Server) CancelParticipant(c *gin.Context) {
	if err := s.carpoolSvc.CancelParticipant(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListGuestParticipations(c *gin.Context) {
	participations, err := s.carpoolSvc.ListParticipations(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": participations})
}
