package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
)

// LocaleCookie holds the visitor's chosen language
const LocaleCookie = "lang"

const adminSubjectKey = "admin_subject"

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"locale", i18n.FromContext(c.Request.Context()).String(),
		)
	}
}

// localeMiddleware is the single locale provider. It resolves ?lang=, then
// the lang cookie, then Accept-Language, and stores the result in the
// request context.
func localeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := resolveLocale(c)
		c.Request = c.Request.WithContext(i18n.WithLocale(c.Request.Context(), locale))
		c.Header("Content-Language", locale.String())
		c.Next()
	}
}

func resolveLocale(c *gin.Context) i18n.Locale {
	if l, ok := i18n.Parse(c.Query("lang")); ok {
		return l
	}
	if v, err := c.Cookie(LocaleCookie); err == nil {
		if l, ok := i18n.Parse(v); ok {
			return l
		}
	}
	return i18n.Negotiate(c.GetHeader("Accept-Language"))
}

// corsMiddleware allows the configured browser origins. An entry of "*"
// allows any origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept-Language")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// adminMiddleware requires a valid admin bearer token
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if s.tokens == nil || !strings.HasPrefix(header, "Bearer ") {
			fail(c, http.StatusUnauthorized, KindAuth, s.handlers.translate(c, "http.unauthorized"), nil)
			return
		}

		claims, err := s.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.logger.Info("Admin token rejected", "path", c.Request.URL.Path, "error", err)
			fail(c, http.StatusUnauthorized, KindAuth, s.handlers.translate(c, "http.unauthorized"), nil)
			return
		}

		c.Set(adminSubjectKey, claims.Subject)
		c.Next()
	}
}

// ingestMiddleware admits submissions only from hosts holding the shared
// ingest token, since they arrive without a verified wizard
func (s *Server) ingestMiddleware() gin.HandlerFunc {
	expected := []byte(s.config.IngestToken)
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			s.logger.Info("Ingest request rejected", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			fail(c, http.StatusUnauthorized, KindAuth, s.handlers.translate(c, "http.unauthorized"), nil)
			return
		}
		c.Next()
	}
}
