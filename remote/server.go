// Package remote exposes a ledger store over HTTP, and implements the client
// side of it.
//
// Routes:
//
//	GET    /healthz
//	POST   /v1/owners/:owner/entries   create, answers {"id": "..."}
//	GET    /v1/owners/:owner/entries   list, answers {"entries": [...]}
//	GET    /v1/entries/:id
//	DELETE /v1/entries/:id
package remote

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/etnz/pocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Backend is the store served over HTTP.
type Backend interface {
	pocket.RemoteStore
	Get(ctx context.Context, id string) (pocket.Entry, error)
}

// ServerConfig configures the router.
type ServerConfig struct {
	// Mode is the gin mode: "release", "debug" or "test". Defaults to release.
	Mode string
	// AllowOrigins lists the origins allowed by CORS. Empty allows all origins.
	AllowOrigins []string
	Logger       *log.Logger
}

type handler struct {
	backend Backend
	logger  *log.Logger
}

// NewRouter returns the gin engine serving backend.
func NewRouter(backend Backend, cfg ServerConfig) *gin.Engine {
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Printf("%s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	})

	h := &handler{backend: backend, logger: logger}
	router.GET("/healthz", h.health)

	v1 := router.Group("/v1")
	v1.POST("/owners/:owner/entries", h.create)
	v1.GET("/owners/:owner/entries", h.list)
	v1.GET("/entries/:id", h.get)
	v1.DELETE("/entries/:id", h.delete)
	return router
}

// fail answers err with the status it maps to.
func (h *handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pocket.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pocket.ErrMalformedRecord):
		status = http.StatusBadRequest
	case errors.Is(err, pocket.ErrUnreachable):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		h.logger.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handler) health(c *gin.Context) {
	if p, ok := h.backend.(pocket.Pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			h.logger.Printf("health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) create(c *gin.Context) {
	var e pocket.Entry
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e.ID = ""
	e.OwnerID = c.Param("owner")
	e.State = pocket.Settled
	if err := e.Validate(); err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.backend.Create(c.Request.Context(), e)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) list(c *gin.Context) {
	entries, err := h.backend.ListByOwner(c.Request.Context(), c.Param("owner"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []pocket.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handler) get(c *gin.Context) {
	e, err := h.backend.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handler) delete(c *gin.Context) {
	if err := h.backend.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
