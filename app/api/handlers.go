package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gecanews/newswatch/app/cfg"
	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/subscription"
	"github.com/gecanews/newswatch/app/token"
)

type Handler struct {
	newsRepo       database.NewsRepository
	subscriberRepo database.SubscriberRepository
	service        *subscription.Service
	generator      *Generator
}

func NewHandler(newsRepo database.NewsRepository, subscriberRepo database.SubscriberRepository,
	service *subscription.Service) *Handler {
	return &Handler{
		newsRepo:       newsRepo,
		subscriberRepo: subscriberRepo,
		service:        service,
		generator:      NewGenerator(),
	}
}

func (h *Handler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "NewsWatch",
		"version":     cfg.Get().Version,
		"description": "College news change detection and email notification service",
		"endpoints": map[string]string{
			"news":        "/api/news",
			"feed":        "/feed.xml",
			"subscribe":   "/subscribe (POST)",
			"verify":      "/verify?token=<token>",
			"unsubscribe": "/unsubscribe?token=<token>",
			"health":      "/health",
			"stats":       "/stats",
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if newsCount, err := h.newsRepo.GetCount(); err == nil {
		health["news_items"] = newsCount
	}
	if subCount, err := h.subscriberRepo.GetCount(); err == nil {
		health["subscribers"] = subCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	newsCount, err := h.newsRepo.GetCount()
	if err != nil {
		slog.Error("Database error", "operation", "news_count", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	subCount, err := h.subscriberRepo.GetCount()
	if err != nil {
		slog.Error("Database error", "operation", "subscriber_count", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"news_items":  newsCount,
		"subscribers": subCount,
		"version":     cfg.Get().Version,
	})
}

func (h *Handler) GetNews(c *gin.Context) {
	items, err := h.newsRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_news", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load news"})
		return
	}

	type newsResponse struct {
		Title       string    `json:"title"`
		Link        string    `json:"link"`
		FirstSeenAt time.Time `json:"first_seen_at"`
	}

	response := make([]newsResponse, 0, len(items))
	for _, item := range items {
		response = append(response, newsResponse{
			Title:       item.Title,
			Link:        item.Link,
			FirstSeenAt: item.FirstSeenAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetFeed(c *gin.Context) {
	items, err := h.newsRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_news", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, h.generator.Run(items))
}

func (h *Handler) GetSubscribers(c *gin.Context) {
	subs, err := h.subscriberRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_subscribers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load subscribers"})
		return
	}

	type subscriberResponse struct {
		Email     string    `json:"email"`
		State     string    `json:"state"`
		CreatedAt time.Time `json:"created_at"`
	}

	response := make([]subscriberResponse, 0, len(subs))
	for _, sub := range subs {
		response = append(response, subscriberResponse{
			Email:     sub.Email,
			State:     sub.State,
			CreatedAt: sub.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

type subscribeRequest struct {
	Email        string `form:"email" json:"email"`
	CaptchaToken string `form:"captcha_token" json:"captcha_token"`
}

func (h *Handler) PostSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	err := h.service.Subscribe(c.Request.Context(), req.Email, req.CaptchaToken)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Verification email sent, please check your inbox"})
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		c.JSON(http.StatusOK, gin.H{"message": "Already subscribed"})
	case errors.Is(err, subscription.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email address"})
	case errors.Is(err, subscription.ErrCaptchaFailed):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Captcha verification failed"})
	case errors.Is(err, subscription.ErrUndeliverableDomain):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email domain cannot receive mail"})
	default:
		slog.Error("Subscribe request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"message": "Subscription failed, please try again later"})
	}
}

func (h *Handler) GetVerify(c *gin.Context) {
	tokenValue := c.Query("token")
	if tokenValue == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}

	_, err := h.service.Verify(c.Request.Context(), tokenValue)
	switch {
	case err == nil:
		c.String(http.StatusOK, "Subscription confirmed. Welcome to GECA News Updates!")
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		c.String(http.StatusOK, "Already subscribed")
	case errors.Is(err, token.ErrInvalidToken):
		c.String(http.StatusBadRequest, "Invalid or expired link")
	default:
		slog.Error("Verify request failed", "error", err)
		c.String(http.StatusInternalServerError, "Verification failed, please try again later")
	}
}

func (h *Handler) GetUnsubscribe(c *gin.Context) {
	tokenValue := c.Query("token")
	if tokenValue == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}

	_, err := h.service.Unsubscribe(c.Request.Context(), tokenValue)
	switch {
	case err == nil:
		c.String(http.StatusOK, "You have been unsubscribed from GECA News Updates")
	case errors.Is(err, token.ErrInvalidToken):
		c.String(http.StatusBadRequest, "Invalid or expired link")
	default:
		slog.Error("Unsubscribe request failed", "error", err)
		c.String(http.StatusInternalServerError, "Unsubscribe failed, please try again later")
	}
}
