// cmd/storagenode is the main entrypoint for one sharded, WAL-backed
// storage node. A node knows nothing about the ring or any other node; it
// just serves PUT/GET/DEL/RANGE/ALL/STATUS over HTTP against its own WAL
// and in-memory shards.
//
// Example:
//
//	./storagenode --addr :9001 --data-dir /var/ringstore/node1
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

	"ringstore/internal/storagenode"
	"ringstore/internal/store"
)

func main() {
	addr := flag.String("addr", ":9001", "Listen address (host:port)")
	dataDir := flag.String("data-dir", "/tmp/ringstore", "Directory for this node's WAL")
	shards := flag.Int("shards", store.DefaultShardCount, "Number of in-memory shards")
	production := flag.Bool("production", false, "Use production (JSON) logging instead of development console logging")
	flag.Parse()

	log, err := newLogger(*production)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	port := portFromAddr(*addr)
	s, err := store.Open(*dataDir, port, *shards)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	srv := storagenode.New(s, log, reg, canonAddr(*addr))

	gin.SetMode(ginMode(*production))
	router := gin.New()
	router.Use(gin.Recovery())
	srv.Register(router)

	httpSrv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("storage node listening", zap.String("addr", *addr), zap.String("data_dir", *dataDir))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storage node")
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
