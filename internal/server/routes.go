package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"

	"github.com/gradebench/gradebench/internal/server/handlers"
	"github.com/gradebench/gradebench/internal/server/middleware"
	"github.com/gradebench/gradebench/internal/version"
)

type RouteConfig struct {
	Auth middleware.TokenAuthConfig
}

func SetupRoutes(deps *Deps, routeConfig *RouteConfig) http.Handler {
	r := gin.New()

	rateLimitStore := memory.NewStore()
	rateLimiter := limiter.New(rateLimitStore, limiter.Rate{
		Period: 1 * time.Second,
		Limit:  10,
	})

	syncH := handlers.NewSyncHandler(deps.Runner, deps.Tracker, deps.Store)
	groupsH := handlers.NewGroupsHandler(deps.Store)
	statusH := handlers.NewStatusHandler(deps.Store)

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())
	r.Use(mgin.NewMiddleware(rateLimiter))

	r.GET("/", IndexHandler)

	v1 := r.Group("/v1")
	v1.Use(middleware.TokenAuth(routeConfig.Auth))
	{
		v1.GET("/status", statusH.Status)

		v1Sync := v1.Group("/sync")
		{
			v1Sync.POST("/start", syncH.Start)
			v1Sync.GET("/progress", syncH.Progress)
			v1Sync.GET("/batch/:id", syncH.Batch)
			v1Sync.GET("/events", syncH.Events)
		}

		v1Groups := v1.Group("/groups")
		{
			v1Groups.POST("/save", groupsH.Save)
			v1Groups.GET("/assignments", groupsH.Assignments)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler()
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func IndexHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Detailed())
}
