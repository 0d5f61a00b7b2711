// Command evalserver runs the dual-model evaluation HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giridharan-1129/LLM-Evaluation-app/log"
	"github.com/giridharan-1129/LLM-Evaluation-app/server"
)

var (
	addr           = flag.String("addr", ":8000", "listen address")
	logLevel       = flag.String("log-level", "info", "log level: debug, info, warn, error")
	rowConcurrency = flag.Int("row-concurrency", 1, "dataset rows evaluated in parallel per run")
)

func main() {
	flag.Parse()
	log.SetLevel(*logLevel)

	srv := &http.Server{
		Addr:    *addr,
		Handler: server.New(server.WithRowConcurrency(*rowConcurrency)).Handler(),
	}

	go func() {
		log.Infof("evaluation server listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
