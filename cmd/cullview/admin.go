package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newAdminServer(addr string) *http.Server {
	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           &admin,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveAdmin runs s until ctx is done. It returns once s has stopped.
func serveAdmin(ctx context.Context, s *http.Server) {
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			logs.Warn(errors.New("shutting down the admin server failed").
				WithTag("addr", s.Addr).
				Wrap(err))
		}
	}()

	logs.WithTag("addr", s.Addr).Info("starting admin server")
	switch err := s.ListenAndServe(); err {
	case nil, http.ErrServerClosed:
		logs.WithTag("addr", s.Addr).Info("stopping admin server")
	default:
		logs.Warn(errors.New("admin server stopped").
			WithTag("addr", s.Addr).
			Wrap(err))
	}
}
