// Package validation provides input validation for the scanner API.
package validation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// mintLen is the byte length of a Solana public key.
const mintLen = 32

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidMint checks whether s is a base58-encoded 32-byte Solana mint address.
func IsValidMint(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == mintLen
}

// SanitizeMint trims whitespace around a mint address.
func SanitizeMint(s string) string {
	return strings.TrimSpace(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}
