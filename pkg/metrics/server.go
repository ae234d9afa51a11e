package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type MetricsServer struct {
	crtFile string
	keyFile string
	logger  *zap.Logger
	srv     *http.Server
}

// NewServer creates the metrics http.Server. TLS is used when both crt and key are set.
func NewServer(host string, port int, crt, key string, logger *zap.Logger) (*MetricsServer, error) {
	if port <= 0 {
		return nil, errors.New("invalid port for metrics server")
	}
	if (crt == "") != (key == "") {
		return nil, errors.New("metrics TLS needs both a certificate and a key")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := http.NewServeMux()
	router.Handle("/metrics", promhttp.Handler())
	return &MetricsServer{
		crtFile: crt,
		keyFile: key,
		logger:  logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Addr is the address the metrics server binds to.
func (s *MetricsServer) Addr() string {
	return s.srv.Addr
}

// StopServer stops the metrics server
func (s *MetricsServer) StopServer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("problem shutting down metrics server", zap.Error(err))
	}
}

// RunServer serves metrics until stopCh is closed.
func (s *MetricsServer) RunServer(stopCh <-chan struct{}) {
	go func() {
		var err error
		s.logger.Info("metrics server listening", zap.String("address", s.srv.Addr), zap.Bool("tls", s.crtFile != ""))
		if len(s.crtFile) > 0 && len(s.keyFile) > 0 {
			err = s.srv.ListenAndServeTLS(s.crtFile, s.keyFile)
		} else {
			err = s.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("error starting metrics server", zap.Error(err))
		}
	}()
	<-stopCh
	if err := s.srv.Close(); err != nil {
		s.logger.Error("error closing metrics server", zap.Error(err))
	}
}
