// Package api is the operator-facing HTTP surface: create/list/delete
// reminders, preference updates, health, and delivery stats. End users talk
// to the bot through chat commands, which live outside this service; this
// API exists for operators and trusted frontends.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"reminder-bot/internal/config"
	"reminder-bot/internal/db"
	"reminder-bot/internal/dedupe"
	"reminder-bot/internal/models"
	"reminder-bot/internal/redis"
	"reminder-bot/internal/reminder"
	"reminder-bot/internal/security"
)

// processedRequestCapacity bounds the double-submission dedupe set.
const processedRequestCapacity = 100

type ReminderService interface {
	CreateReminder(ctx context.Context, p reminder.CreateParams) (int64, error)
	ListForUser(ctx context.Context, userID string) ([]models.Reminder, error)
	DeleteOwned(ctx context.Context, id int64, requesterID string) (int64, error)
	Upcoming(ctx context.Context, asOf time.Time, limit int) ([]models.Reminder, error)
	User(ctx context.Context, userID string) (*models.User, error)
	SetUserTimezone(ctx context.Context, userID, timezone string) error
	SetUserLocale(ctx context.Context, userID, locale string) error
}

type Server struct {
	log      *slog.Logger
	svc      ReminderService
	db       *db.DB
	redis    *redis.Client
	cfg      config.Config
	router   *gin.Engine
	limiters *security.LimiterStore
	recent   *dedupe.Set
	now      func() time.Time
}

func NewServer(log *slog.Logger, svc ReminderService, dbConn *db.DB, redisClient *redis.Client, cfg config.Config) *Server {
	s := &Server{
		log:      log,
		svc:      svc,
		db:       dbConn,
		redis:    redisClient,
		cfg:      cfg,
		router:   gin.New(),
		limiters: security.NewLimiterStore(rate.Limit(10), 20, 10*time.Minute),
		recent:   dedupe.NewSet(processedRequestCapacity),
		now:      time.Now,
	}

	gin.SetMode(gin.ReleaseMode)
	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/users/:user_id/reminders", s.listUserReminders)
		v1.POST("/reminders", s.createReminder)
		v1.DELETE("/reminders/:id", s.deleteReminder)
		v1.PUT("/users/:user_id/timezone", s.setTimezone)
		v1.PUT("/users/:user_id/locale", s.setLocale)

		admin := v1.Group("/admin")
		admin.Use(s.adminAuthMiddleware())
		{
			admin.GET("/reminders/upcoming", s.upcomingReminders)
			admin.GET("/stats", s.stats)
		}
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
