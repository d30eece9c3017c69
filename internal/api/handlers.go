package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"reminder-bot/internal/discord"
	"reminder-bot/internal/i18n"
	"reminder-bot/internal/models"
	"reminder-bot/internal/reminder"
	"reminder-bot/internal/security"
	"reminder-bot/internal/timeparse"
)

func jsonError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	dbStatus := "connected"
	if s.db == nil {
		dbStatus = "not_configured"
	} else if err := s.db.Pool.Ping(ctx); err != nil {
		dbStatus = "unavailable"
	}

	redisStatus := "connected"
	if s.redis == nil {
		redisStatus = "not_configured"
	} else if _, err := s.redis.GetInt(ctx, "health_probe"); err != nil {
		redisStatus = "unavailable"
	}

	status := http.StatusOK
	if dbStatus == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   "ok",
		"database": dbStatus,
		"redis":    redisStatus,
	})
}

type createReminderRequest struct {
	OwnerID     string `json:"owner_id"`
	TargetID    string `json:"target_id"`
	GuildID     string `json:"guild_id"`
	ChannelID   string `json:"channel_id"`
	Body        string `json:"body"`
	Time        string `json:"time"`   // free text, resolved in the owner's timezone
	DueAt       string `json:"due_at"` // RFC3339 alternative to "time"
	MessageLink string `json:"message_link"`
}

func (s *Server) createReminder(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_body", "malformed json body")
		return
	}

	if _, err := security.ParseSnowflake(req.OwnerID); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_owner_id", "owner_id must be a Discord id")
		return
	}
	if _, err := security.ParseSnowflake(req.ChannelID); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_channel_id", "channel_id must be a Discord id")
		return
	}
	if req.TargetID != "" {
		if _, err := security.ParseSnowflake(req.TargetID); err != nil {
			jsonError(c, http.StatusBadRequest, "invalid_target_id", "target_id must be a Discord id")
			return
		}
	}

	params := reminder.CreateParams{
		OwnerID:   req.OwnerID,
		TargetID:  req.TargetID,
		ChannelID: req.ChannelID,
		Body:      req.Body,
	}
	if req.GuildID != "" {
		params.GuildID = &req.GuildID
	}

	if req.MessageLink != "" {
		link, ok := discord.ParseMessageLink(req.MessageLink)
		if !ok {
			jsonError(c, http.StatusBadRequest, "invalid_message_link", "not a Discord message link")
			return
		}
		params.AnchorMessageID = &link.MessageID
		params.AnchorMessageURL = &link.URL
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	// Resolve the due instant in the owner's stored timezone.
	tz := "UTC"
	if u, err := s.svc.User(ctx, req.OwnerID); err == nil && u != nil && u.Timezone != "" {
		tz = u.Timezone
	}
	params.Timezone = tz

	var display string
	switch {
	case req.DueAt != "":
		at, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			jsonError(c, http.StatusBadRequest, "invalid_due_at", "due_at must be RFC3339")
			return
		}
		params.DueAt = at.UTC()
		display = at.UTC().Format("2006-01-02 15:04 MST")
	case req.Time != "":
		resolved := timeparse.Resolve(req.Time, tz, s.now())
		if resolved == nil {
			jsonError(c, http.StatusBadRequest, "unparseable_time", `could not parse time, try "in 1 hour" or "tomorrow at 3pm"`)
			return
		}
		params.DueAt = resolved.At
		display = resolved.Display
	default:
		jsonError(c, http.StatusBadRequest, "missing_time", "provide time or due_at")
		return
	}

	// Reflexive double-submissions reuse their idempotency key; drop repeats.
	// Observed only after validation so a rejected request keeps its key.
	if key := c.GetHeader("X-Idempotency-Key"); key != "" {
		if s.recent.Observe(key) {
			jsonError(c, http.StatusConflict, "duplicate_request", "request already processed")
			return
		}
	}

	id, err := s.svc.CreateReminder(ctx, params)
	if err != nil {
		if reminder.IsValidation(err) {
			jsonError(c, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		s.log.Error("create_reminder_failed", "owner_id", req.OwnerID, "error", err)
		jsonError(c, http.StatusInternalServerError, "internal", "failed to create reminder")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       id,
		"due_at":   params.DueAt.Format(time.RFC3339),
		"display":  display,
		"relative": timeparse.FormatRelative(params.DueAt, tz, s.now()),
	})
}

func (s *Server) listUserReminders(c *gin.Context) {
	userID := c.Param("user_id")
	if _, err := security.ParseSnowflake(userID); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_user_id", "user_id must be a Discord id")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	reminders, err := s.svc.ListForUser(ctx, userID)
	if err != nil {
		s.log.Error("list_reminders_failed", "user_id", userID, "error", err)
		jsonError(c, http.StatusInternalServerError, "internal", "failed to list reminders")
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

func (s *Server) deleteReminder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		jsonError(c, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}

	requester := c.Query("requester_id")
	if _, err := security.ParseSnowflake(requester); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_requester_id", "requester_id must be a Discord id")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	n, err := s.svc.DeleteOwned(ctx, id, requester)
	if err != nil {
		s.log.Error("delete_reminder_failed", "reminder_id", id, "error", err)
		jsonError(c, http.StatusInternalServerError, "internal", "failed to delete reminder")
		return
	}
	if n == 0 {
		// Not found or not owned; the two are indistinguishable on purpose.
		jsonError(c, http.StatusNotFound, "not_found", "no reminder deleted")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) setTimezone(c *gin.Context) {
	userID := c.Param("user_id")
	if _, err := security.ParseSnowflake(userID); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_user_id", "user_id must be a Discord id")
		return
	}

	var req struct {
		Timezone string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_body", "malformed json body")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	if err := s.svc.SetUserTimezone(ctx, userID, req.Timezone); err != nil {
		if reminder.IsValidation(err) {
			jsonError(c, http.StatusBadRequest, "invalid_timezone", "unknown IANA timezone")
			return
		}
		s.log.Error("set_timezone_failed", "user_id", userID, "error", err)
		jsonError(c, http.StatusInternalServerError, "internal", "failed to update timezone")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "timezone": req.Timezone})
}

func (s *Server) setLocale(c *gin.Context) {
	userID := c.Param("user_id")
	if _, err := security.ParseSnowflake(userID); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_user_id", "user_id must be a Discord id")
		return
	}

	var req struct {
		Locale string `json:"locale"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Locale == "" {
		jsonError(c, http.StatusBadRequest, "invalid_body", "locale is required")
		return
	}

	locale := i18n.Normalize(req.Locale)

	ctx, cancel := s.ctx(c)
	defer cancel()

	if err := s.svc.SetUserLocale(ctx, userID, locale); err != nil {
		s.log.Error("set_locale_failed", "user_id", userID, "error", err)
		jsonError(c, http.StatusInternalServerError, "internal", "failed to update locale")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "locale": locale})
}

func (s *Server) upcomingReminders(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			jsonError(c, http.StatusBadRequest, "invalid_limit", "limit must be 1-100")
			return
		}
		limit = n
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	reminders, err := s.svc.Upcoming(ctx, s.now(), limit)
	if err != nil {
		s.log.Error("upcoming_reminders_failed", "error", err)
		jsonError(c, http.StatusInternalServerError, "internal", "failed to list upcoming reminders")
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

func (s *Server) stats(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	var deliveredToday int64
	if s.redis != nil {
		key := "reminders:delivered:" + s.now().UTC().Format("2006-01-02")
		if n, err := s.redis.GetInt(ctx, key); err == nil {
			deliveredToday = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"delivered_today": deliveredToday,
	})
}
