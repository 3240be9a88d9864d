package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
)

type rebateAgreementRequest struct {
	AgreementType    string                   `json:"agreement_type"`
	PartyID          string                   `json:"party_id"`
	Description      string                   `json:"description"`
	StartDate        string                   `json:"start_date"`
	EndDate          string                   `json:"end_date"`
	CalcFrequency    string                   `json:"calc_frequency"`
	Basis            string                   `json:"basis"`
	RateType         string                   `json:"rate_type"`
	ApprovalRequired bool                     `json:"approval_required"`
	Tiers            []rebatedomain.TierInput `json:"tiers"`
	ProductIDs       []string                 `json:"product_ids"`
	CategoryIDs      []string                 `json:"category_ids"`
}

func (r rebateAgreementRequest) toCreateRequest() (rebatedomain.CreateRequest, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return rebatedomain.CreateRequest{}, newValidationError("start_date", "invalid_date", "invalid start date")
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return rebatedomain.CreateRequest{}, newValidationError("end_date", "invalid_date", "invalid end date")
	}

	return rebatedomain.CreateRequest{
		AgreementType:    strings.TrimSpace(r.AgreementType),
		PartyID:          strings.TrimSpace(r.PartyID),
		Description:      strings.TrimSpace(r.Description),
		StartDate:        start,
		EndDate:          end,
		CalcFrequency:    strings.TrimSpace(r.CalcFrequency),
		Basis:            strings.TrimSpace(r.Basis),
		RateType:         strings.TrimSpace(r.RateType),
		ApprovalRequired: r.ApprovalRequired,
		Tiers:            r.Tiers,
		ProductIDs:       r.ProductIDs,
		CategoryIDs:      r.CategoryIDs,
	}, nil
}

func (s *Server) CreateRebateAgreement(c *gin.Context) {
	var req rebateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createReq, err := req.toCreateRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.rebateSvc.Create(c.Request.Context(), createReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRebateAgreement(c *gin.Context) {
	var req rebateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createReq, err := req.toCreateRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.rebateSvc.Update(c.Request.Context(), rebatedomain.UpdateRequest{
		ID:               strings.TrimSpace(c.Param("id")),
		AgreementType:    createReq.AgreementType,
		PartyID:          createReq.PartyID,
		Description:      createReq.Description,
		StartDate:        createReq.StartDate,
		EndDate:          createReq.EndDate,
		CalcFrequency:    createReq.CalcFrequency,
		Basis:            createReq.Basis,
		RateType:         createReq.RateType,
		ApprovalRequired: createReq.ApprovalRequired,
		Tiers:            createReq.Tiers,
		ProductIDs:       createReq.ProductIDs,
		CategoryIDs:      createReq.CategoryIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRebateAgreement(c *gin.Context) {
	if err := s.rebateSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListRebateAgreements(c *gin.Context) {
	var query struct {
		AgreementType string `form:"agreement_type"`
		PartyID       string `form:"party_id"`
		Status        string `form:"status"`
		SortBy        string `form:"sort_by"`
		OrderBy       string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rebateSvc.List(c.Request.Context(), rebatedomain.ListRequest{
		AgreementType: strings.TrimSpace(query.AgreementType),
		PartyID:       strings.TrimSpace(query.PartyID),
		Status:        strings.TrimSpace(query.Status),
		SortBy:        strings.TrimSpace(query.SortBy),
		OrderBy:       strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRebateAgreementByID(c *gin.Context) {
	resp, err := s.rebateSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRebateAgreementByUUID(c *gin.Context) {
	resp, err := s.rebateSvc.GetByUUID(c.Request.Context(), strings.TrimSpace(c.Param("uuid")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
