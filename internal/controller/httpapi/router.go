package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsPath    string
	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	// Realtime serves GET /api/v1/ws when set.
	Realtime http.Handler
	Recorder HTTPRecorder
}

// NewRouter собирает маршруты API и цепочку middleware
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverPanic(logger), requestLog(logger))
	if cfg.Recorder != nil {
		r.Use(observe(cfg.Recorder))
	}

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, cfg.MetricsHandler).Methods(http.MethodGet)
	}

	limiter := newRateLimiterStore(cfg.RateLimitRPS, cfg.RateLimitBurst)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Публичные маршруты
	public := api.NewRoute().Subrouter()
	public.Use(rateLimit(limiter))
	public.HandleFunc("/users", h.RegisterUser).Methods(http.MethodPost)

	// Маршруты, требующие идентификации
	protected := api.NewRoute().Subrouter()
	protected.Use(authenticate(logger), rateLimit(limiter))

	protected.HandleFunc("/users/me", h.GetMe).Methods(http.MethodGet)

	protected.HandleFunc("/availabilities", h.CreateAvailability).Methods(http.MethodPost)
	protected.HandleFunc("/availabilities", h.GetAvailabilityByDate).Methods(http.MethodGet)
	protected.HandleFunc("/availabilities/upcoming", h.GetUpcomingAvailability).Methods(http.MethodGet)

	protected.HandleFunc("/trainers/{trainerId:[0-9]+}/slots", h.GetTrainerSlots).Methods(http.MethodGet)
	protected.HandleFunc("/trainers/{trainerId:[0-9]+}/bookings", h.GetBookingsWithTrainer).Methods(http.MethodGet)

	protected.HandleFunc("/slots/{slotId:[0-9]+}/book", h.BookSlot).Methods(http.MethodPost)
	protected.HandleFunc("/slots/{slotId:[0-9]+}/cancel", h.CancelSlot).Methods(http.MethodPut)

	protected.HandleFunc("/bookings", h.GetUpcomingBookings).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId:[0-9]+}", h.GetBooking).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId:[0-9]+}/trainer-cancel", h.TrainerCancelBooking).Methods(http.MethodPut)
	protected.HandleFunc("/bookings/{bookingId:[0-9]+}/user-cancel", h.UserCancelBooking).Methods(http.MethodPut)

	if cfg.Realtime != nil {
		protected.Handle("/ws", cfg.Realtime).Methods(http.MethodGet)
	}

	return r
}
