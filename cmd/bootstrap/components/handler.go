package components

import (
	"salon-booking/internal/handler"
	"salon-booking/internal/handler/api"
	"salon-booking/internal/handler/middleware"
	"salon-booking/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		middleware.NewAuthMiddleware,
		func(cfg config.Config) *middleware.RateLimiter {
			return middleware.NewRateLimiter(cfg.RateLimit)
		},
	),
	fx.Invoke(RegisterRoutes),
)

type routeDeps struct {
	fx.In

	Engine         *gin.Engine
	Config         config.Config
	Logger         *middleware.Logger
	BookingHandler *api.BookingHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	Gatherer       prometheus.Gatherer
}

func RegisterRoutes(d routeDeps) {
	handler.NewRouter(d.Engine, handler.RouterParams{
		Config:         d.Config,
		Logger:         d.Logger,
		BookingHandler: d.BookingHandler,
		AuthMiddleware: d.AuthMiddleware,
		RateLimiter:    d.RateLimiter,
		Gatherer:       d.Gatherer,
	})
}
