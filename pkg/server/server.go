package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"ledgerbot/pkg/journal"
	"ledgerbot/pkg/masterdata"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Refresher interface {
	Refresh(ctx context.Context) error
	Get() (*masterdata.Snapshot, bool)
}

type SessionCounter interface {
	Len() int
}

type OutcomeLister interface {
	Recent(ctx context.Context, senderID string, limit int) ([]journal.Entry, error)
}

const (
	defaultOutcomeLimit = 20
	maxOutcomeLimit     = 200
)

// NewRouter registers the ops endpoints: health, Prometheus metrics, master data
// refresh and the active session count. /outcomes/:sender is only served when
// outcomes is non-nil.
func NewRouter(refresher Refresher, sessions SessionCounter, outcomes OutcomeLister) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		_, loaded := refresher.Get()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "master_data_loaded": loaded})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/refresh", func(c *gin.Context) {
		if err := refresher.Refresh(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		snap, ok := refresher.Get()
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": "master data not loaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"branches":   len(snap.Branches),
			"categories": len(snap.Categories),
			"fetched_at": snap.FetchedAt,
		})
	})

	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"active": sessions.Len()})
	})

	if outcomes != nil {
		r.GET("/outcomes/:sender", func(c *gin.Context) {
			limit := defaultOutcomeLimit
			if raw := c.Query("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 || n > maxOutcomeLimit {
					c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
					return
				}
				limit = n
			}
			entries, err := outcomes.Recent(c.Request.Context(), c.Param("sender"), limit)
			if err != nil {
				log.Printf("[outcomes] Error loading outcomes: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load outcomes"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"outcomes": entries})
		})
	}

	return r
}

type Server struct {
	httpServer *http.Server
}

func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run blocks until the server stops. A clean Shutdown is not an error.
func (s *Server) Run() error {
	log.Printf("[server.Run] Ops server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
