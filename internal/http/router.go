package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/shiftlane/backend/internal/config"
	"github.com/shiftlane/backend/internal/db"
	"github.com/shiftlane/backend/internal/http/handlers"
	"github.com/shiftlane/backend/internal/http/middleware"
	"github.com/shiftlane/backend/internal/service"

	_ "github.com/shiftlane/backend/docs"
)

func Router(cfg config.Config, store *db.Store, coordinator *service.Coordinator, tracker *service.Tracker, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Business-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:       store,
		Coordinator: coordinator,
		Tracker:     tracker,
		Validator:   validator.New(),
		Logger:      logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/shifts", h.ShiftsList)
		api.GET("/shifts/:id", h.GetShift)
		api.POST("/shifts/:id/apply", h.Apply)
		api.GET("/shifts/:id/applicants", h.Applicants)
		api.GET("/workers/:id/assignment", h.ActiveAssignment)

		api.POST("/assignments/:id/clock-in", h.ClockIn)
		api.POST("/assignments/:id/clock-out", h.ClockOut)
		api.POST("/assignments/:id/break-start", h.BreakStart)
		api.POST("/assignments/:id/break-end", h.BreakEnd)
		api.GET("/assignments/:id/tracking", h.TrackingStatus)
	}

	business := api.Group("")
	business.Use(middleware.BusinessKey(cfg.BusinessKey))
	{
		business.POST("/shifts", h.PostShift)
		business.PUT("/shifts/:id", h.UpdateShift)
		business.POST("/shifts/:id/cancel", h.CancelShift)
		business.POST("/shifts/:id/applications/:worker_id/accept", h.AcceptApplication)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
