// cmd/proxy is the main entrypoint for the routing proxy: it owns the
// consistent hash ring and is the only way clients and admins reach the
// storage nodes.
//
// Example:
//
//	./proxy --addr :8000 --vnodes 100
//
// Nodes are added or removed at runtime via the admin endpoints, not at
// startup:
//
//	curl -X POST localhost:8000/add_node -d host=localhost:9001
//	curl -X POST localhost:8000/remove_node -d host=localhost:9001
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ringstore/internal/proxy"
	"ringstore/internal/ring"
)

func main() {
	addr := flag.String("addr", ":8000", "Listen address (host:port)")
	vnodes := flag.Int("vnodes", ring.DefaultVirtualNodes, "Virtual nodes per storage node")
	production := flag.Bool("production", false, "Use production (JSON) logging instead of development console logging")
	flag.Parse()

	log, err := newLogger(*production)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	reg := prometheus.NewRegistry()
	cluster := proxy.New(*vnodes, log, reg)
	srv := proxy.NewServer(cluster, log, reg)

	gin.SetMode(ginMode(*production))
	router := gin.New()
	router.Use(gin.Recovery())
	srv.Register(router)

	httpSrv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // admin ops can run a migration before replying
	}

	go func() {
		log.Info("proxy listening", zap.String("addr", *addr), zap.Int("vnodes", *vnodes))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down proxy")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warn("server shutdown error", zap.Error(err))
	}
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func ginMode(production bool) string {
	if production {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}
