package web

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"

	"edabridge/pkg/device"
	"edabridge/pkg/generic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

const MetricsPath = "/metrics"

type Server struct {
	*generic.Server
	manager *device.Manager
}

func NewServer(s *generic.Server, manager *device.Manager) *Server {
	server := &Server{
		Server:  s,
		manager: manager,
	}
	server.InstallHandlers()
	return server
}

func (s *Server) InstallHandlers() {
	device.InstallHandler(s.Router.Group("/"), s.manager)
	s.Router.GET(MetricsPath, gin.WrapH(promhttp.Handler()))
}

// Serve starts listening in the background. The returned function stops the server, waiting for
// in-flight requests until ctx is done. Listener failures are reported on errCh.
func (s *Server) Serve(errCh chan<- error) (func(ctx context.Context) error, error) {
	srv := &http.Server{
		Addr:    s.Addr(),
		Handler: s.Router,
	}

	if s.TLS() {
		x509KeyPair, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
		if err != nil {
			return nil, err
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{x509KeyPair},
			MinVersion:   tls.VersionTLS12,
		}
	}

	go func() {
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "HTTP server stopped", "address", srv.Addr)
			errCh <- err
		}
	}()
	klog.V(1).InfoS("HTTP server started", "address", srv.Addr, "tls", srv.TLSConfig != nil)

	return func(ctx context.Context) error {
		srv.SetKeepAlivesEnabled(false)
		return srv.Shutdown(ctx)
	}, nil
}
