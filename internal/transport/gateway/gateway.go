package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/security"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
)

// Gateway is the platform edge: it terminates CORS, establishes the trust
// boundary for identity headers, and forwards requests to the internal
// services by path prefix. It holds no session state; every request is
// judged on its bearer credential alone.
type Gateway struct {
	cfg    config.GatewaySettings
	engine *gin.Engine
	logger *zap.Logger
}

// New builds the edge engine. The token codec must share the signing secret
// with the services behind the gateway.
func New(cfg *config.AppConfig, codec *security.TokenCodec, logger *zap.Logger) (*Gateway, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	usersProxy, err := newProxy(cfg.Gateway.UsersURL, logger)
	if err != nil {
		return nil, fmt.Errorf("users upstream: %w", err)
	}
	coursesProxy, err := newProxy(cfg.Gateway.CoursesURL, logger)
	if err != nil {
		return nil, fmt.Errorf("courses upstream: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Gateway.AllowedOrigins))
	r.Use(middleware.EdgeTrust(codec))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Path-prefix routing. Everything under the user-service surface goes
	// to the users upstream, course catalog traffic to the courses
	// upstream. Unknown prefixes fall through to 404 here at the edge.
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		switch {
		case hasAnyPrefix(path, "/api/v1/auth", "/api/v1/usuarios", "/api/v1/inscripciones", "/api/v1/reportes"):
			usersProxy.ServeHTTP(c.Writer, c.Request)
		case hasAnyPrefix(path, "/api/v1/cursos"):
			coursesProxy.ServeHTTP(c.Writer, c.Request)
		default:
			c.JSON(http.StatusNotFound, gin.H{
				"status":  http.StatusNotFound,
				"error":   http.StatusText(http.StatusNotFound),
				"message": "no route for path",
				"path":    path,
			})
		}
	})

	return &Gateway{cfg: cfg.Gateway, engine: r, logger: logger}, nil
}

// Handler exposes the edge engine.
func (g *Gateway) Handler() http.Handler {
	return g.engine
}

// Addr returns the configured listen address.
func (g *Gateway) Addr() string {
	return fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)
}

func newProxy(upstream string, logger *zap.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", upstream, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed",
			zap.String("upstream", target.Host),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, `{"status":%d,"error":"Bad Gateway","message":"upstream unavailable","path":%q}`,
			http.StatusBadGateway, r.URL.Path)
	}

	return proxy, nil
}

func hasAnyPrefix(path string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
