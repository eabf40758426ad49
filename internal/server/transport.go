package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	transportdomain "github.com/smallbiznis/guestlist/internal/transport/domain"
)

type createScheduleRequest struct {
	DepartureTime     time.Time `json:"departure_time"`
	DepartureLocation string    `json:"departure_location"`
	MaxCapacity       *int      `json:"max_capacity"`
}

type bookSeatRequest struct {
	ScheduleID    string `json:"schedule_id"`
	GuestID       string `json:"guest_id"`
	PassengerName string `json:"passenger_name"`
}

func (s *Server) ListTransportOptions(c *gin.Context) {
	options, err := s.transportSvc.ListOptions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": options})
}

func (s *Server) ListSchedules(c *gin.Context) {
	schedules, err := s.transportSvc.ListSchedules(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": schedules})
}

func (s *Server) CreateTransportOption(c *gin.Context) {
	var req transportdomain.CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	option, err := s.transportSvc.CreateOption(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": option})
}

func (s *Server) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.transportSvc.CreateSchedule(c.Request.Context(), transportdomain.CreateScheduleRequest{
		OptionID:          strings.TrimSpace(c.Param("id")),
		DepartureTime:     req.DepartureTime,
		DepartureLocation: strings.TrimSpace(req.DepartureLocation),
		MaxCapacity:       req.MaxCapacity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": schedule})
}

func (s *Server) BookSeatForGuest(c *gin.Context) {
	var req bookSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	booking, err := s.transportSvc.BookSeat(c.Request.Context(), transportdomain.BookSeatRequest{
		ScheduleID:    strings.TrimSpace(req.ScheduleID),
		GuestID:       strings.TrimSpace(req.GuestID),
		PassengerName: strings.TrimSpace(req.PassengerName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": booking})
}

func (s *Server) CancelBooking(c *gin.Context) {
	if err := s.transportSvc.CancelBooking(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListGuestBookings(c *gin.Context) {
	bookings, err := s.transportSvc.ListBookingsByGuest(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

func (s *Server) ListMyBookings(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	bookings, err := s.transportSvc.ListBookingsByGuest(c.Request.Context(), guest.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

func (s *Server) BookMySeat(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req bookSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	booking, err := s.transportSvc.BookSeat(c.Request.Context(), transportdomain.BookSeatRequest{
		ScheduleID:    strings.TrimSpace(req.ScheduleID),
		GuestID:       guest.ID.String(),
		PassengerName: strings.TrimSpace(req.PassengerName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": booking})
}

// CancelMyBooking only cancels bookings held by the caller. Someone else's
// booking reads as not found.
func (s *Server) CancelMyBooking(c *gin.Context) {
	guest, err := s.currentGuest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	bookingID := strings.TrimSpace(c.Param("id"))
	booking, err := s.transportSvc.GetBooking(ctx, bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if booking.GuestID != guest.ID {
		AbortWithError(c, transportdomain.ErrBookingNotFound)
		return
	}

	if err := s.transportSvc.CancelBooking(ctx, bookingID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
