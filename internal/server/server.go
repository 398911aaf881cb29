// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"jobboard-backend/internal/common/config"
	"jobboard-backend/internal/common/database"
	"jobboard-backend/internal/common/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything the HTTP layer needs. Postgres and Redis are only
// used for readiness probing; Verifier, Recorder and the blob store may be
// nil when auth, tracing or uploads are disabled.
type Deps struct {
	Config       *config.Config
	Logger       logger.Logger
	Postgres     *database.PostgresClient
	Redis        *database.RedisClient
	JobListings  *JobListingHandlers
	Applications *ApplicationHandlers
	Verifier     TokenVerifier
	Recorder     OperationRecorder
}

// New assembles the gin engine with middleware and the full route surface.
func New(d Deps) *http.Server {
	if d.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(d.Logger))
	router.Use(Metrics(d.Recorder))
	router.Use(cors.New(corsConfig(d.Config.Server.AllowedOrigins)))

	registerOps(router, d)
	registerRoutes(router, d)

	return &http.Server{
		Addr:         d.Config.Server.Addr(),
		Handler:      router,
		ReadTimeout:  config.GetDuration(d.Config.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(d.Config.Server.WriteTimeout),
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Authorization", "Content-Type"}
	return cfg
}

// registerOps wires the operational trio: liveness, readiness, metrics.
func registerOps(router *gin.Engine, d Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": d.Config.App.Name,
			"version": d.Config.App.Version,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true
		if err := d.Postgres.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
		if d.Redis != nil {
			if err := d.Redis.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"checks": checks})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes wires the domain surface. Candidate-facing reads and the
// submission endpoint are public; everything that mutates listings or reviews
// applications sits behind auth.
func registerRoutes(router *gin.Engine, d Deps) {
	auth := RequireAuth(d.Verifier)
	jl := d.JobListings
	apps := d.Applications

	listings := router.Group("/job-listings")
	{
		listings.GET("", jl.List)
		listings.GET("/published", jl.ListPublished)
		listings.GET("/search", jl.Search)
		listings.GET("/location", jl.ListByLocation)
		listings.GET("/employment-type/:type", jl.ListByEmploymentType)
		listings.GET("/date-range", jl.ListByDateRange)
		listings.GET("/expired", auth, jl.ListExpired)
		listings.POST("/close-expired", auth, jl.CloseExpired)
		listings.GET("/slug/:slug", jl.GetBySlug)
		listings.GET("/:id", jl.GetByID)

		listings.POST("", auth, jl.Create)
		listings.PATCH("/:id", auth, jl.Update)
		listings.PATCH("/:id/status", auth, jl.UpdateStatus)
		listings.POST("/:id/publish", auth, jl.Publish)
		listings.POST("/:id/unpublish", auth, jl.Unpublish)
		listings.POST("/:id/media", auth, jl.AddMedia)
		listings.POST("/:id/media/upload", auth, jl.UploadMedia)
		listings.PATCH("/:id/media/:mediaId", auth, jl.UpdateMedia)
		listings.DELETE("/:id/media/:mediaId", auth, jl.RemoveMedia)
		listings.POST("/:id/sections", auth, jl.AddSection)
		listings.PATCH("/:id/sections/:sectionId", auth, jl.UpdateSection)
		listings.DELETE("/:id/sections/:sectionId", auth, jl.RemoveSection)
		listings.POST("/:id/tags", auth, jl.AddTags)
		listings.DELETE("/:id/tags", auth, jl.RemoveTags)
		listings.POST("/:id/applications/increment", auth, jl.IncrementApplications)
		listings.POST("/:id/applications/decrement", auth, jl.DecrementApplications)
		listings.POST("/bulk/status", auth, jl.BulkUpdateStatus)
		listings.DELETE("/:id", auth, jl.Delete)

		listings.GET("/:id/applications", auth, apps.ListByJobListing)
		listings.GET("/:id/applications/stats", auth, apps.Statistics)
		listings.GET("/:id/applications/count", auth, apps.Count)
	}

	applications := router.Group("/applications")
	{
		applications.POST("", apps.Submit)
		applications.GET("/recent", auth, apps.ListRecent)
		applications.GET("/date-range", auth, apps.ListByDateRange)
		applications.GET("/search", auth, apps.SearchByResponseField)
		applications.GET("/exists", apps.Exists)
		applications.GET("/candidate/:email", auth, apps.ListByCandidateEmail)
		applications.GET("/:id", auth, apps.GetByID)
		applications.PATCH("/:id/status", auth, apps.UpdateStatus)
		applications.POST("/:id/notes", auth, apps.AddNotes)
		applications.POST("/:id/rating", auth, apps.Rate)
		applications.POST("/bulk/status", auth, apps.BulkUpdateStatus)
		applications.DELETE("/:id", auth, apps.Delete)
	}
}
