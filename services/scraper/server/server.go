// Package server exposes the scraper over a JSON HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"xscrape-backend/services/scraper"

	"github.com/gin-gonic/gin"
)

// maxBatchSize bounds one batch request; bigger runs belong in the CLI
// where pacing is observable.
const maxBatchSize = 10

type Server struct {
	service *scraper.Service
}

func New(service *scraper.Service) *Server {
	return &Server{service: service}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.Health)

	api := r.Group("/api")
	api.GET("/scrape/:identity", s.ScrapeByPath)
	api.POST("/scrape", s.ScrapeByBody)
	api.POST("/scrape/batch", s.ScrapeBatch)
	api.GET("/config", s.GetConfig)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ScrapeByPath(c *gin.Context) {
	identity := c.Param("identity")
	force := c.Query("force_refresh") == "true" || c.Query("force_refresh") == "1"
	s.scrapeOne(c, identity, force)
}

type scrapeRequest struct {
	Username     string `json:"username" binding:"required"`
	ForceRefresh bool   `json:"force_refresh"`
}

func (s *Server) ScrapeByBody(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.scrapeOne(c, req.Username, req.ForceRefresh)
}

func (s *Server) scrapeOne(c *gin.Context, identity string, force bool) {
	result, err := s.service.Scrape(c.Request.Context(), identity, force)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "scrape failed", "identity", identity, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Usernames    []string `json:"usernames" binding:"required"`
	ForceRefresh bool     `json:"force_refresh"`
	// DelayMS overrides the configured pacing between profiles.
	DelayMS *int `json:"delay_ms"`
}

func (s *Server) ScrapeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Usernames) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "usernames must not be empty"})
		return
	}
	if len(req.Usernames) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "too many usernames, the batch limit is 10",
		})
		return
	}

	pacing := time.Duration(-1)
	if req.DelayMS != nil && *req.DelayMS >= 0 {
		pacing = time.Duration(*req.DelayMS) * time.Millisecond
	}

	results, err := s.service.ScrapeMany(c.Request.Context(), req.Usernames, req.ForceRefresh, pacing)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "batch scrape failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"summary": gin.H{
			"total":      len(results),
			"successful": successful,
			"failed":     len(results) - successful,
		},
	})
}

// GetConfig reports the effective runtime knobs. Proxy endpoints stay
// private: they routinely embed credentials.
func (s *Server) GetConfig(c *gin.Context) {
	cfg := s.service.Config()
	c.JSON(http.StatusOK, gin.H{
		"browser": gin.H{
			"mode":            cfg.Browser.Mode,
			"headless":        cfg.Browser.Headless,
			"timeout_seconds": cfg.Browser.TimeoutSeconds,
		},
		"cache": gin.H{
			"backend":     cfg.Cache.Backend,
			"ttl_seconds": cfg.Cache.TTLSeconds,
		},
		"proxy": gin.H{
			"mode":  cfg.Proxy.Mode,
			"count": len(cfg.Proxy.Proxies),
		},
		"rate_limit_seconds": *cfg.RateLimitSeconds,
	})
}
