package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/guestlist/internal/authorization"
	carpooldomain "github.com/smallbiznis/guestlist/internal/carpool/domain"
	"github.com/smallbiznis/guestlist/internal/config"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/observability"
	obsmiddleware "github.com/smallbiznis/guestlist/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/guestlist/internal/observability/metrics"
	obstracing "github.com/smallbiznis/guestlist/internal/observability/tracing"
	"github.com/smallbiznis/guestlist/internal/ratelimit"
	transportdomain "github.com/smallbiznis/guestlist/internal/transport/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	tokens       *tokenVerifier
	guestSvc     guestdomain.Service
	transportSvc transportdomain.Service
	carpoolSvc   carpooldomain.Service
	authzSvc     authorization.Service
	limiter      *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	GuestSvc     guestdomain.Service
	TransportSvc transportdomain.Service
	CarpoolSvc   carpooldomain.Service
	AuthzSvc     authorization.Service
	Limiter      *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) (*Server, error) {
	tokens, err := newTokenVerifier(p.Cfg.Auth)
	if err != nil {
		return nil, err
	}

	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		tokens:       tokens,
		guestSvc:     p.GuestSvc,
		transportSvc: p.TransportSvc,
		carpoolSvc:   p.CarpoolSvc,
		authzSvc:     p.AuthzSvc,
		limiter:      p.Limiter,
	}

	svc.registerGuestRoutes()
	svc.registerSharedRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()
	return svc, nil
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerGuestRoutes serves the caller's own guest record. Every handler
// resolves the guest through the account link, so a guest can only act on
// itself.
func (s *Server) registerGuestRoutes() {
	me := s.engine.Group("/api/me", s.AuthRequired())

	me.GET("", s.authorize(authorization.ObjectGuest, authorization.ActionGuestView), s.GetMe)
	me.POST("/register", s.authorize(authorization.ObjectGuest, authorization.ActionGuestRespond), s.GuestFormRateLimit(), s.RegisterMe)
	me.POST("/rsvp", s.authorize(authorization.ObjectGuest, authorization.ActionGuestRespond), s.GuestFormRateLimit(), s.SubmitMyResponse)
	me.GET("/history", s.authorize(authorization.ObjectGuest, authorization.ActionGuestView), s.GetMyHistory)

	me.GET("/bookings", s.authorize(authorization.ObjectBooking, authorization.ActionBookingView), s.ListMyBookings)
	me.POST("/bookings", s.authorize(authorization.ObjectBooking, authorization.ActionBookingCreate), s.BookingRateLimit(), s.BookMySeat)
	me.DELETE("/bookings/:id", s.authorize(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelMyBooking)

	me.GET("/carpool", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolView), s.ListMyParticipations)
	me.POST("/carpool/offers", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolOffer), s.BookingRateLimit(), s.CreateMyOffer)
	me.POST("/carpool/offers/:id/cancel", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolCancel), s.CancelMyOffer)
	me.POST("/carpool/offers/:id/join", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolJoin), s.BookingRateLimit(), s.JoinOffer)
	me.POST("/carpool/participants/:id/cancel", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolCancel), s.CancelMyParticipation)
}

func (s *Server) registerSharedRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/transport/options", s.authorize(authorization.ObjectTransport, authorization.ActionTransportView), s.ListTransportOptions)
	api.GET("/transport/options/:id/schedules", s.authorize(authorization.ObjectTransport, authorization.ActionTransportView), s.ListSchedules)

	api.GET("/carpool/offers", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolView), s.ListCarpoolOffers)
	api.GET("/carpool/offers/:id", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolView), s.GetCarpoolOffer)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireRole(authorization.RoleAdmin))

	// -------- Guests --------
	admin.GET("/guests", s.authorize(authorization.ObjectDirectory, authorization.ActionDirectoryView), s.SearchGuests)
	admin.GET("/guests/summary", s.authorize(authorization.ObjectDirectory, authorization.ActionDirectoryView), s.GetGuestSummary)
	admin.POST("/guests", s.authorize(authorization.ObjectGuest, authorization.ActionGuestCreate), s.CreateGuest)
	admin.GET("/guests/:id", s.authorize(authorization.ObjectGuest, authorization.ActionGuestView), s.GetGuestByID)
	admin.GET("/guests/:id/history", s.authorize(authorization.ObjectGuest, authorization.ActionGuestView), s.GetGuestHistory)
	admin.GET("/guests/:id/communications", s.authorize(authorization.ObjectGuest, authorization.ActionGuestView), s.GetGuestCommunications)
	admin.POST("/guests/:id/status", s.authorize(authorization.ObjectGuest, authorization.ActionGuestOverride), s.OverrideGuestStatus)
	admin.PUT("/guests/:id/account", s.authorize(authorization.ObjectGuest, authorization.ActionGuestLink), s.LinkGuestAccount)
	admin.DELETE("/guests/:id/account", s.authorize(authorization.ObjectGuest, authorization.ActionGuestLink), s.UnlinkGuestAccount)
	admin.POST("/guests/:id/archive", s.authorize(authorization.ObjectGuest, authorization.ActionGuestArchive), s.ArchiveGuest)
	admin.POST("/guests/:id/restore", s.authorize(authorization.ObjectGuest, authorization.ActionGuestArchive), s.RestoreGuest)
	admin.GET("/guests/:id/bookings", s.authorize(authorization.ObjectBooking, authorization.ActionBookingView), s.ListGuestBookings)
	admin.GET("/guests/:id/carpool", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolView), s.ListGuestParticipations)

	// -------- Reminders --------
	admin.POST("/reminders", s.authorize(authorization.ObjectReminder, authorization.ActionReminderSend), s.SendReminders)

	// -------- Transport --------
	admin.POST("/transport/options", s.authorize(authorization.ObjectTransport, authorization.ActionTransportManage), s.CreateTransportOption)
	admin.POST("/transport/options/:id/schedules", s.authorize(authorization.ObjectTransport, authorization.ActionTransportManage), s.CreateSchedule)
	admin.POST("/bookings", s.authorize(authorization.ObjectBooking, authorization.ActionBookingCreate), s.BookSeatForGuest)
	admin.DELETE("/bookings/:id", s.authorize(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelBooking)

	// -------- Carpool --------
	admin.POST("/carpool/offers/:id/cancel", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolCancel), s.CancelOffer)
	admin.POST("/carpool/participants/:id/cancel", s.authorize(authorization.ObjectCarpool, authorization.ActionCarpoolCancel), s.CancelParticipant)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
