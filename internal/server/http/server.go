// Package httpserver exposes the stockfolio REST API over gin.
package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/api"
	"github.com/and161185/stockfolio/internal/convert"
	"github.com/and161185/stockfolio/internal/service"
)

// Server wires services into gin handlers.
type Server struct {
	auth     service.AuthService
	holdings service.HoldingsService
	log      *zap.Logger
	ping     func() error
}

// Option configures Server.
type Option func(*Server)

// WithHealthCheck makes /healthz report the result of ping.
func WithHealthCheck(ping func() error) Option { return func(s *Server) { s.ping = ping } }

// New constructs the REST server.
func New(auth service.AuthService, holdings service.HoldingsService, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{auth: auth, holdings: holdings, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the routed engine.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(s.log), recoverer(s.log))

	r.GET("/healthz", s.healthz)

	users := r.Group("/api/users")
	users.POST("/signup", s.signup)
	users.GET("/verify", s.verify)
	users.POST("/login", s.login)
	users.POST("/refresh", s.refresh)
	users.GET("/me", s.bearerAuth(), s.me)
	users.POST("/logout", s.bearerAuth(), s.logout)

	stocks := r.Group("/api/stocks")
	stocks.GET("/search", s.search)
	stocks.GET("/detail/:code", s.detail)
	mine := stocks.Group("/me", s.bearerAuth())
	mine.GET("", s.listHoldings)
	mine.POST("", s.putHolding)
	mine.DELETE("/:code", s.deleteHolding)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- users ---

func (s *Server) signup(c *gin.Context) {
	var req api.SignupRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.auth.Signup(c.Request.Context(), convert.FromSignup(&req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToAccount(a))
}

func (s *Server) verify(c *gin.Context) {
	if err := s.auth.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

func (s *Server) login(c *gin.Context) {
	var req api.LoginRequest
	if !bind(c, &req) {
		return
	}
	tok, err := s.auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToTokens(tok))
}

func (s *Server) refresh(c *gin.Context) {
	var req api.RefreshRequest
	if !bind(c, &req) {
		return
	}
	tok, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToTokens(tok))
}

func (s *Server) me(c *gin.Context) {
	a, err := s.auth.Me(c.Request.Context(), subject(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToAccount(a))
}

func (s *Server) logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), subject(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- stocks ---

func (s *Server) search(c *gin.Context) {
	c.JSON(http.StatusOK, convert.ToStockList(s.holdings.Search(c.Query("query"))))
}

func (s *Server) detail(c *gin.Context) {
	d, err := s.holdings.Detail(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToStockDetail(d))
}

func (s *Server) listHoldings(c *gin.Context) {
	vs, err := s.holdings.List(c.Request.Context(), subject(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToHoldingList(vs))
}

func (s *Server) putHolding(c *gin.Context) {
	var req api.PutHoldingRequest
	if !bind(c, &req) {
		return
	}
	h, err := s.holdings.Put(c.Request.Context(), subject(c), convert.FromPutHolding(&req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToHolding(*h))
}

func (s *Server) deleteHolding(c *gin.Context) {
	if err := s.holdings.Delete(c.Request.Context(), subject(c), c.Param("code")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Code: "validation", Message: err.Error()})
		return false
	}
	return true
}
