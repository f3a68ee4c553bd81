package web

import (
	"context"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"discord-trigger/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Executor what the web service needs from the engine.
type Executor interface {
	Execute(ctx context.Context, nodeName string, params map[string]any) (*core.ExecutionResult, error)
	Nodes() []core.NodeDescription
	ListExecutions() []core.Execution
	CancelExecution(id core.CombinedKey) bool
}

type ServiceConfig struct {
	Addr            string
	TrustedProxies  []string
	Executor        Executor
	CredentialTypes []core.CredentialDescription
}

// Service Exposes the engine over HTTP.
type Service struct {
	ServiceConfig
	GinEngine *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func (s *Service) Name() string {
	return "web"
}

func (s *Service) Init(reg *core.ServiceRegistry) error {
	if s.Executor == nil {
		return errors.New("web service needs an executor")
	}
	/* Setup Api Server */
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	if err := engine.SetTrustedProxies(s.TrustedProxies); err != nil {
		return errors.Wrap(err, "invalid trusted proxies")
	}
	s.GinEngine = engine
	s.routes()
	return reg.RegisterService(s)
}

func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Wrapf(err, "error listening on %s", s.Addr)
	}
	server := &http.Server{Handler: s.GinEngine, ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.server, s.listener = server, listener
	s.mu.Unlock()
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.Logger.Errorf("web server stopped: %v", err)
		}
	}()
	core.Logger.Debugf("Service [%s] is now online at %s.", reflect.TypeOf(s), listener.Addr())
	return nil
}

func (s *Service) Stop() error {
	s.mu.Lock()
	server := s.server
	s.server, s.listener = nil, nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "error shutting down web server")
	}
	core.Logger.Debugf("Service [%s] is successfully closed.", reflect.TypeOf(s))
	return nil
}

func (s *Service) Status() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return errors.New("web server is not listening")
	}
	return nil
}

// ListenAddr address the server is bound to, empty when stopped.
func (s *Service) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		core.Logger.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
