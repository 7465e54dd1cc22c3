package routes

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventmanager/middlewares"
	"eventmanager/models"
	"eventmanager/utils"
)

// deps is the dependency-injection container for all handlers.
type deps struct {
	users  models.UserRepository
	events models.EventRepository
	inv    *utils.CacheInvalidator
}

// RegisterRoutes mounts the API. Repositories, Redis and the invalidator
// come from main so the handlers never depend on a concrete datastore.
func RegisterRoutes(
	server *gin.Engine,
	u models.UserRepository,
	e models.EventRepository,
	rdb *redis.Client,
	inv *utils.CacheInvalidator,
) {
	d := &deps{users: u, events: e, inv: inv}

	// Global per-IP rate limit.
	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     20,
		Burst:   40,
		IdleTTL: 3 * time.Minute,
	})
	server.Use(globalLimiter.Middleware(func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}))

	// Stricter limit on the credential endpoints.
	authLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     0.5,
		Burst:   2,
		IdleTTL: 10 * time.Minute,
	})
	server.POST("/auth/signup",
		authLimiter.Middleware(func(c *gin.Context) string { return "signup:" + c.ClientIP() }),
		d.signup,
	)
	server.POST("/auth/login",
		authLimiter.Middleware(func(c *gin.Context) string { return "login:" + c.ClientIP() }),
		d.login,
	)

	// Public, cacheable listings.
	server.GET("/events/getEvents", d.getEvents)
	server.GET("/events/eventDetail", d.eventDetail)

	// Everything mutating resolves the session token first, then gets a
	// per-user rate limit and a daily quota.
	auth := server.Group("/")
	auth.Use(middlewares.Authenticate(d.users))

	userLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     5,
		Burst:   10,
		IdleTTL: 10 * time.Minute,
	})
	auth.Use(userLimiter.Middleware(func(c *gin.Context) string {
		return "u:" + strconv.FormatInt(c.GetInt64("userId"), 10)
	}))

	auth.Use(middlewares.Quota(rdb, middlewares.QuotaRule{
		Limit:  2000,
		Window: 24 * time.Hour,
		KeyFn: func(c *gin.Context) string {
			uid := c.GetInt64("userId")
			if uid == 0 {
				return ""
			}
			return fmt.Sprintf("quota:user:%d:day", uid)
		},
	}))

	auth.GET("/auth/userData", d.userData)
	auth.GET("/events/getMyEvents", d.getMyEvents)
	auth.POST("/events/createEvent", d.createEvent)
	auth.POST("/events/editEvent", d.editEvent)
	auth.POST("/events/deleteEvent", d.deleteEvent)
	auth.POST("/tickets/buyTicket", d.buyTicket)
	auth.GET("/tickets/getMyTickets", d.getMyTickets)
}

// caller rebuilds the denormalized identity snapshot set by Authenticate.
func caller(c *gin.Context) models.PersonDets {
	return models.PersonDets{
		Username: c.GetString("username"),
		Email:    c.GetString("email"),
	}
}

// pagination reads ?page= and ?limit= with a per-endpoint default size.
func pagination(c *gin.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	return int(math.Ceil(float64(total) / float64(limit)))
}
