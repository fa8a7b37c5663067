package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mintlabs/mintguard/internal/logging"
	"github.com/mintlabs/mintguard/internal/scan"
)

// scanHandler handles POST /api/v1/scan
func (s *Server) scanHandler(c *gin.Context) {
	var req struct {
		Mint string `json:"mint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be JSON with a \"mint\" field",
		})
		return
	}

	s.evaluate(c, req.Mint)
}

// scanByMintHandler handles GET /api/v1/scan/:mint
func (s *Server) scanByMintHandler(c *gin.Context) {
	s.evaluate(c, c.Param("mint"))
}

func (s *Server) evaluate(c *gin.Context, mint string) {
	ctx := c.Request.Context()

	resp, err := s.scans.Evaluate(ctx, mint)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidMint) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_mint",
				"message": "mint must be a base58-encoded Solana address",
			})
			return
		}
		logging.L(ctx).Error("scan failed", "mint", mint, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to evaluate token",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// historyHandler handles GET /api/v1/scans?mint=&limit=
func (s *Server) historyHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := s.scans.History(c.Request.Context(), c.Query("mint"), limit)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidMint) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_mint",
				"message": "mint must be a base58-encoded Solana address",
			})
			return
		}
		logging.L(c.Request.Context()).Error("history query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list scans",
		})
		return
	}

	if records == nil {
		records = []*scan.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"scans": records,
		"count": len(records),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())
	httpStatus := http.StatusOK
	status := "ready"
	if !healthy {
		httpStatus = http.StatusServiceUnavailable
		status = "degraded"
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"checks":    statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "MintGuard",
		"description": "Token risk scanner for Solana mints",
		"version":     "0.1.0",
		"chain":       "solana",
	})
}
