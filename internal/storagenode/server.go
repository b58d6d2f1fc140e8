// Package storagenode wires a store.Store to the HTTP endpoints a storage
// node exposes to the proxy: PUT, DEL, GET, RANGE, ALL, STATUS, RESET.
//
// Just like the teacher's internal/api package, this is a thin Gin layer:
// all the actual logic lives in internal/store. Handlers only translate
// between HTTP and store.Store's Go API, and between the wire's
// form-encoded/query-param contract and Go types.
package storagenode

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ringstore/internal/store"
)

// Server holds everything one storage node process needs: its store, its
// logger, and its metrics. Constructed once at startup and passed by
// reference into every handler closure — there is no global state.
type Server struct {
	store   *store.Store
	log     *zap.Logger
	metrics *metrics
	reg     *prometheus.Registry
}

// New builds a Server for a storage node listening as nodeAddr.
func New(s *store.Store, log *zap.Logger, reg *prometheus.Registry, nodeAddr string) *Server {
	return &Server{
		store:   s,
		log:     log,
		reg:     reg,
		metrics: newMetrics(reg, nodeAddr, func() int { return len(s.All()) }),
	}
}

// Register mounts every storage node endpoint on r.
func (s *Server) Register(r *gin.Engine) {
	r.POST("/put", s.handlePut)
	r.POST("/del", s.handleDel)
	r.GET("/get", s.handleGet)
	r.GET("/range", s.handleRange)
	r.GET("/all", s.handleAll)
	r.GET("/status", s.handleStatus)
	r.POST("/reset", s.handleReset)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))
}

// handlePut implements POST /put key=..&val=..
func (s *Server) handlePut(c *gin.Context) {
	key := c.PostForm("key")
	val := c.PostForm("val")
	if key == "" {
		c.String(http.StatusBadRequest, "key is required")
		return
	}

	if err := s.store.Put(key, val); err != nil {
		s.metrics.walErrors.Inc()
		s.log.Warn("put failed", zap.String("key", key), zap.Error(err))
		c.String(http.StatusInternalServerError, "put failed: %v", err)
		return
	}
	s.metrics.puts.Inc()
	c.String(http.StatusOK, "OK")
}

// handleDel implements POST /del key=..
func (s *Server) handleDel(c *gin.Context) {
	key := c.PostForm("key")
	if key == "" {
		c.String(http.StatusBadRequest, "key is required")
		return
	}

	if err := s.store.Delete(key); err != nil {
		s.metrics.walErrors.Inc()
		s.log.Warn("del failed", zap.String("key", key), zap.Error(err))
		c.String(http.StatusInternalServerError, "del failed: %v", err)
		return
	}
	s.metrics.dels.Inc()
	c.String(http.StatusOK, "OK")
}

// handleGet implements GET /get?key=..
func (s *Server) handleGet(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.String(http.StatusBadRequest, "key is required")
		return
	}

	s.metrics.gets.Inc()
	val, ok := s.store.Get(key)
	if !ok {
		s.metrics.misses.Inc()
		c.String(http.StatusNotFound, "not found")
		return
	}
	c.String(http.StatusOK, val)
}

// handleRange implements GET /range?start=..&end=.. with start/end as
// unsigned 64-bit decimals, replying with line-oriented key\nvalue\n pairs.
func (s *Server) handleRange(c *gin.Context) {
	start, end, ok := parseRangeParams(c)
	if !ok {
		c.String(http.StatusBadRequest, "start and end must be unsigned 64-bit decimals")
		return
	}

	s.metrics.rangeOps.Inc()
	writeEntries(c, s.store.RangeScan(start, end))
}

// handleAll implements GET /all: same body shape as /range, no hash filter.
func (s *Server) handleAll(c *gin.Context) {
	s.metrics.rangeOps.Inc()
	writeEntries(c, s.store.All())
}

// handleStatus implements GET /status: the health probe the proxy calls
// before ADD, and that anyone can poll as a liveness check.
func (s *Server) handleStatus(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleReset implements POST /reset: clears all shards and truncates the
// WAL. Test/debug only.
func (s *Server) handleReset(c *gin.Context) {
	if err := s.store.Reset(); err != nil {
		c.String(http.StatusInternalServerError, "reset failed: %v", err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func parseRangeParams(c *gin.Context) (start, end uint64, ok bool) {
	startStr := c.Query("start")
	endStr := c.Query("end")
	start, err1 := strconv.ParseUint(startStr, 10, 64)
	end, err2 := strconv.ParseUint(endStr, 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}

// writeEntries writes key\nvalue\n pairs, the line-oriented body shape
// shared by /range and /all.
func writeEntries(c *gin.Context, entries []store.Entry) {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Key)
		b.WriteByte('\n')
		b.WriteString(e.Value)
		b.WriteByte('\n')
	}
	c.String(http.StatusOK, b.String())
}
