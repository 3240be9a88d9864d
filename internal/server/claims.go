package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	claimdomain "github.com/harborline/catalog/internal/claim/domain"
)

type calculateClaimRequest struct {
	AgreementID string          `json:"agreement_id"`
	ProductID   string          `json:"product_id"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Accumulated decimal.Decimal `json:"accumulated"`
}

// claimRateLimit throttles claim calculation per caller. Without redis the
// bucket is nil and every request passes.
func (s *Server) claimRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.claimBucket == nil {
			c.Next()
			return
		}

		key := "claims:calculate:" + c.ClientIP()
		result, err := s.claimBucket.Allow(c.Request.Context(), key, s.cfg.ClaimCalcRate, s.cfg.ClaimCalcBurst)
		if err != nil {
			// Degrade open when redis is unreachable.
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", result.RetryAfter.String())
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

func (s *Server) CalculateRebateClaim(c *gin.Context) {
	var req calculateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_date", "invalid period start"))
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_date", "invalid period end"))
		return
	}

	resp, err := s.claimSvc.Calculate(c.Request.Context(), claimdomain.CalculateRequest{
		AgreementID: strings.TrimSpace(req.AgreementID),
		ProductID:   strings.TrimSpace(req.ProductID),
		PeriodStart: start,
		PeriodEnd:   end,
		Accumulated: req.Accumulated,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdvanceRebateClaim(c *gin.Context) {
	var req struct {
		TargetStatus string `json:"target_status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.Advance(c.Request.Context(), claimdomain.AdvanceRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		TargetStatus: strings.TrimSpace(req.TargetStatus),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRebateClaims(c *gin.Context) {
	var query struct {
		AgreementID string `form:"agreement_id"`
		ProductID   string `form:"product_id"`
		Status      string `form:"status"`
		SortBy      string `form:"sort_by"`
		OrderBy     string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.List(c.Request.Context(), claimdomain.ListRequest{
		AgreementID: strings.TrimSpace(query.AgreementID),
		ProductID:   strings.TrimSpace(query.ProductID),
		Status:      strings.TrimSpace(query.Status),
		SortBy:      strings.TrimSpace(query.SortBy),
		OrderBy:     strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRebateClaimByID(c *gin.Context) {
	resp, err := s.claimSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
