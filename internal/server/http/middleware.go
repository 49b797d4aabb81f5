package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/stockfolio/internal/api"
)

const (
	// RequestIDHeader is read from requests and echoed on responses.
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	subjectKey   = "subject"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			if id, err := uuid.NewV4(); err == nil {
				rid = id.String()
			}
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

// requestLogger logs one line per request. Bodies and query strings are not logged
// since they carry credentials and verification tokens.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		lvl := zapcore.InfoLevel
		if status >= http.StatusInternalServerError {
			lvl = zapcore.ErrorLevel
		}
		log.Log(lvl, "http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("dur", time.Since(start)),
			zap.String("client", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

func recoverer(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, r any) {
		log.Error("panic",
			zap.Any("reason", r),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.Error{Code: "internal", Message: "internal error"})
	})
}

// bearerAuth resolves the access token and stores only the subject for the handler to pass on.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") || strings.TrimSpace(h[7:]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Error{Code: "invalid_token", Message: "missing bearer token"})
			return
		}
		sub, err := s.auth.CurrentSubject(strings.TrimSpace(h[7:]))
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		c.Set(subjectKey, sub)
		c.Next()
	}
}

func subject(c *gin.Context) string { return c.GetString(subjectKey) }
