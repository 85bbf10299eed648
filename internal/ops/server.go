// Package ops serves the operational side-channel: health, runtime
// stats and pprof, on a port separate from the job API.
package ops

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Server is the ops endpoint set.
type Server struct {
	engine  *gin.Engine
	db      *sqlx.DB
	started time.Time
}

// NewServer builds the ops router
func NewServer(db *sqlx.DB, enableProfiling bool) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		db:      db,
		started: time.Now(),
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/stats", s.handleStats)

	if enableProfiling {
		engine.GET("/debug/pprof/*profile", gin.WrapF(pprofHandler))
	}

	return s
}

// Start blocks serving the ops endpoints.
func (s *Server) Start(port string) error {
	return s.engine.Run(":" + port)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := gin.H{
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	if s.db != nil {
		var counts []struct {
			Status string `db:"status"`
			Count  int    `db:"count"`
		}
		if err := s.db.SelectContext(c.Request.Context(), &counts,
			"SELECT status, COUNT(*) as count FROM jobs GROUP BY status"); err == nil {
			byStatus := make(map[string]int, len(counts))
			for _, row := range counts {
				byStatus[row.Status] = row.Count
			}
			stats["jobs_by_status"] = byStatus
		}
	}
	c.JSON(http.StatusOK, stats)
}

// pprofHandler dispatches to the stdlib pprof handlers based on the
// trailing path segment.
func pprofHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/debug/pprof/cmdline":
		pprof.Cmdline(w, r)
	case "/debug/pprof/profile":
		pprof.Profile(w, r)
	case "/debug/pprof/symbol":
		pprof.Symbol(w, r)
	case "/debug/pprof/trace":
		pprof.Trace(w, r)
	default:
		pprof.Index(w, r)
	}
}
