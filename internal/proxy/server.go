package proxy

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ringstore/internal/ring"
)

// Server wires a Cluster to HTTP, mirroring internal/storagenode.Server's
// shape: a thin Gin handler layer over the domain type, with its own
// Prometheus handler mounted at /metrics.
type Server struct {
	cluster *Cluster
	log     *zap.Logger
	reg     *prometheus.Registry
}

// NewServer builds a proxy Server around an already-constructed Cluster.
func NewServer(c *Cluster, log *zap.Logger, reg *prometheus.Registry) *Server {
	return &Server{cluster: c, log: log, reg: reg}
}

// Register mounts every proxy route onto r.
func (s *Server) Register(r *gin.Engine) {
	r.POST("/put", s.handlePut)
	r.POST("/del", s.handleDelete)
	r.GET("/get", s.handleGet)
	r.POST("/add_node", s.handleAddNode)
	r.POST("/remove_node", s.handleRemoveNode)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))
}

func (s *Server) handlePut(c *gin.Context) {
	key := c.PostForm("key")
	val := c.PostForm("val")
	if key == "" {
		c.String(http.StatusBadRequest, "missing key")
		return
	}
	if err := s.cluster.Put(c.Request.Context(), key, val); err != nil {
		s.writeClusterError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleDelete(c *gin.Context) {
	key := c.PostForm("key")
	if key == "" {
		c.String(http.StatusBadRequest, "missing key")
		return
	}
	if err := s.cluster.Delete(c.Request.Context(), key); err != nil {
		s.writeClusterError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleGet(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.String(http.StatusBadRequest, "missing key")
		return
	}
	val, ok, err := s.cluster.Get(c.Request.Context(), key)
	if err != nil {
		s.writeClusterError(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.String(http.StatusOK, val)
}

// handleAddNode accepts a candidate node address (form field "host"), health
// checks it, and if it is reachable, runs the add-rebalance migration
// before returning. The request blocks for the duration of the migration,
// matching the synchronous ADD semantics spec.md describes.
func (s *Server) handleAddNode(c *gin.Context) {
	host := c.PostForm("host")
	if host == "" {
		c.String(http.StatusBadRequest, "missing host")
		return
	}
	err := s.cluster.AddNode(c.Request.Context(), host)
	if errors.Is(err, ErrHealthCheckFailed) {
		c.String(http.StatusServiceUnavailable, "health check failed")
		return
	}
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, "OK")
}

// handleRemoveNode evacuates a node (form field "host") and blocks until
// every key it held has been migrated to its new owner.
func (s *Server) handleRemoveNode(c *gin.Context) {
	host := c.PostForm("host")
	if host == "" {
		c.String(http.StatusBadRequest, "missing host")
		return
	}
	if err := s.cluster.RemoveNode(c.Request.Context(), host); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, "OK")
}

// handleStatus reports the proxy's liveness and the current node count, the
// additive endpoint recorded in SPEC_FULL.md section 8.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "OK",
		"node_count": s.cluster.Status(),
	})
}

func (s *Server) writeClusterError(c *gin.Context, err error) {
	if errors.Is(err, ring.ErrEmptyRing) {
		c.String(http.StatusServiceUnavailable, "no storage nodes available")
		return
	}
	s.log.Warn("cluster operation failed", zap.Error(err))
	c.String(http.StatusInternalServerError, err.Error())
}
