package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborline/catalog/internal/cache"
	categorydomain "github.com/harborline/catalog/internal/category/domain"
	categoryrepository "github.com/harborline/catalog/internal/category/repository"
	categoryservice "github.com/harborline/catalog/internal/category/service"
	claimdomain "github.com/harborline/catalog/internal/claim/domain"
	claimrepository "github.com/harborline/catalog/internal/claim/repository"
	claimservice "github.com/harborline/catalog/internal/claim/service"
	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/config"
	distributordomain "github.com/harborline/catalog/internal/distributor/domain"
	distributorrepository "github.com/harborline/catalog/internal/distributor/repository"
	distributorservice "github.com/harborline/catalog/internal/distributor/service"
	productdomain "github.com/harborline/catalog/internal/product/domain"
	productrepository "github.com/harborline/catalog/internal/product/repository"
	productservice "github.com/harborline/catalog/internal/product/service"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
	rebaterepository "github.com/harborline/catalog/internal/rebate/repository"
	rebateservice "github.com/harborline/catalog/internal/rebate/service"
	"github.com/harborline/catalog/internal/server"
)

type testEnv struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	baseURL string
	httpSrv *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.httpSrv.Close()
	os.Exit(code)
}

func startEnv() (*testEnv, error) {
	dbConn, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dbConn.AutoMigrate(
		&distributordomain.Distributor{},
		&categorydomain.Category{},
		&productdomain.Product{},
		&rebatedomain.RebateAgreement{},
		&rebatedomain.RebateTier{},
		&rebatedomain.RebateAgreementProduct{},
		&claimdomain.RebateClaim{},
	); err != nil {
		return nil, err
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC))
	expansion := cache.NewExpansionCache()
	rebateCfg := config.NewStaticRebateConfigHolder(config.DefaultRebateConfig())

	distributorRepo := distributorrepository.Provide()
	categoryRepo := categoryrepository.Provide()
	productRepo := productrepository.Provide()
	rebateRepo := rebaterepository.Provide()
	claimRepo := claimrepository.Provide()

	distributorSvc := distributorservice.New(distributorservice.Params{
		DB:    dbConn,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  distributorRepo,
	})
	categorySvc := categoryservice.New(categoryservice.Params{
		DB:        dbConn,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      categoryRepo,
		Expansion: expansion,
	})
	productSvc := productservice.New(productservice.Params{
		DB:           dbConn,
		Log:          log,
		GenID:        node,
		Clock:        fake,
		Repo:         productRepo,
		Categories:   categoryRepo,
		Distributors: distributorRepo,
		Expansion:    expansion,
	})
	rebateSvc := rebateservice.New(rebateservice.Params{
		DB:         dbConn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       rebateRepo,
		Categories: categorySvc,
		RebateCfg:  rebateCfg,
	})
	claimSvc := claimservice.New(claimservice.Params{
		DB:         dbConn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       claimRepo,
		Agreements: rebateRepo,
		RebateCfg:  rebateCfg,
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(server.ErrorHandlingMiddleware())
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server.NewServer(server.ServerParams{
		Gin:            engine,
		Cfg:            config.Config{},
		DB:             dbConn,
		ProductSvc:     productSvc,
		CategorySvc:    categorySvc,
		DistributorSvc: distributorSvc,
		RebateSvc:      rebateSvc,
		ClaimSvc:       claimSvc,
	})

	httpSrv := httptest.NewServer(engine)

	return &testEnv{
		db:      dbConn,
		clock:   fake,
		baseURL: httpSrv.URL,
		httpSrv: httpSrv,
	}, nil
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	for _, table := range []string{
		"rebate_claims",
		"rebate_tiers",
		"rebate_agreement_products",
		"rebate_agreements",
		"products",
		"categories",
		"distributors",
	} {
		if err := dbConn.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("reset table %s: %v", table, err)
		}
	}
}

func doJSON(t *testing.T, method, reqURL string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, reqURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, raw
}

func decodeData(t *testing.T, raw []byte, out any) {
	t.Helper()
	wrapper := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, string(raw))
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(wrapper.Data))
	}
}

func createDistributor(t *testing.T, code, name string) string {
	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/distributors", map[string]any{
		"code": code,
		"name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create distributor: status %d: %s", resp.StatusCode, string(raw))
	}
	var out struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &out)
	return out.ID
}

func createCategory(t *testing.T, name, level string, parentID *string) string {
	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/categories", map[string]any{
		"name":      name,
		"level":     level,
		"parent_id": parentID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create category %s: status %d: %s", name, resp.StatusCode, string(raw))
	}
	var out struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &out)
	return out.ID
}

func createProduct(t *testing.T, code, name string, categoryID, distributorID *string) string {
	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/products", map[string]any{
		"code":           code,
		"name":           name,
		"category_id":    categoryID,
		"distributor_id": distributorID,
		"trade_price":    "10.50",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create product %s: status %d: %s", code, resp.StatusCode, string(raw))
	}
	var out struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &out)
	return out.ID
}

func agreementPayload(partyID string, productIDs []string) map[string]any {
	return map[string]any{
		"agreement_type": "vendor",
		"party_id":       partyID,
		"description":    "Q1 vendor rebate",
		"start_date":     "2026-01-01",
		"end_date":       "2026-03-31",
		"calc_frequency": "monthly",
		"basis":          "quantity",
		"rate_type":      "percentage",
		"tiers": []map[string]any{
			{"from": "0", "to": "100", "value": "5", "unit": "percentage"},
			{"from": "100", "value": "8", "unit": "percentage"},
		},
		"product_ids": productIDs,
	}
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_CatalogFlow(t *testing.T) {
	resetDatabase(t, env.db)

	distributorID := createDistributor(t, "ACME", "Acme Supplies")
	classID := createCategory(t, "Medicines", "class", nil)
	typeID := createCategory(t, "Pain Relief", "type", &classID)
	categoryID := createCategory(t, "Ibuprofen", "category", &typeID)

	productID := createProduct(t, "IBU-200", "Ibuprofen 200mg", &categoryID, &distributorID)

	resp, raw := doJSON(t, http.MethodGet, env.baseURL+"/api/v1/products/"+productID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product: status %d: %s", resp.StatusCode, string(raw))
	}
	var product struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		WebHandle string `json:"web_handle"`
	}
	decodeData(t, raw, &product)
	if product.Code != "IBU-200" || product.WebHandle == "" {
		t.Fatalf("unexpected product payload: %+v", product)
	}

	resp, raw = doJSON(t, http.MethodGet, env.baseURL+"/api/v1/product-handles/"+product.WebHandle, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product by handle: status %d: %s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, http.MethodGet, env.baseURL+"/api/v1/categories/"+classID+"/descendants", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get descendants: status %d: %s", resp.StatusCode, string(raw))
	}
	var descendants []struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &descendants)
	if len(descendants) != 3 {
		t.Fatalf("expected 3 descendants, got %d", len(descendants))
	}
}

func TestE2E_RebateAgreementConflict(t *testing.T) {
	resetDatabase(t, env.db)

	productID := createProduct(t, "IBU-200", "Ibuprofen 200mg", nil, nil)

	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-agreements", agreementPayload("7", []string{productID}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create agreement: status %d: %s", resp.StatusCode, string(raw))
	}
	var created struct {
		ID   string `json:"id"`
		UUID string `json:"uuid"`
	}
	decodeData(t, raw, &created)

	resp, raw = doJSON(t, http.MethodGet, env.baseURL+"/api/v1/rebate-agreements/uuid/"+created.UUID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get agreement by uuid: status %d: %s", resp.StatusCode, string(raw))
	}
	var byUUID struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &byUUID)
	if byUUID.ID != created.ID {
		t.Fatalf("uuid lookup returned agreement %s, want %s", byUUID.ID, created.ID)
	}

	overlapping := agreementPayload("7", []string{productID})
	overlapping["start_date"] = "2026-03-01"
	overlapping["end_date"] = "2026-06-30"
	resp, raw = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-agreements", overlapping)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for overlapping agreement, got %d: %s", resp.StatusCode, string(raw))
	}

	disjoint := agreementPayload("7", []string{productID})
	disjoint["start_date"] = "2026-04-01"
	disjoint["end_date"] = "2026-06-30"
	resp, raw = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-agreements", disjoint)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected disjoint agreement accepted, got %d: %s", resp.StatusCode, string(raw))
	}
}

func TestE2E_RebateAgreementValidation(t *testing.T) {
	resetDatabase(t, env.db)

	productID := createProduct(t, "IBU-200", "Ibuprofen 200mg", nil, nil)

	payload := agreementPayload("7", []string{productID})
	payload["tiers"] = []map[string]any{
		{"from": "0", "to": "100", "value": "5", "unit": "percentage"},
		{"from": "50", "to": "200", "value": "8", "unit": "percentage"},
	}
	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-agreements", payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for overlapping tiers, got %d: %s", resp.StatusCode, string(raw))
	}
}

func TestE2E_ClaimLifecycle(t *testing.T) {
	resetDatabase(t, env.db)

	productID := createProduct(t, "IBU-200", "Ibuprofen 200mg", nil, nil)

	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-agreements", agreementPayload("7", []string{productID}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create agreement: status %d: %s", resp.StatusCode, string(raw))
	}
	var agreement struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &agreement)

	calculate := map[string]any{
		"agreement_id": agreement.ID,
		"product_id":   productID,
		"period_start": "2026-01-01",
		"period_end":   "2026-01-31",
		"accumulated":  "150",
	}
	resp, raw = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-claims/calculate", calculate)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("calculate claim: status %d: %s", resp.StatusCode, string(raw))
	}
	var claim struct {
		ID           string          `json:"id"`
		Status       string          `json:"status"`
		RebateAmount decimal.Decimal `json:"rebate_amount"`
	}
	decodeData(t, raw, &claim)
	if claim.Status != claimdomain.StatusToCalculate {
		t.Fatalf("expected status %s, got %s", claimdomain.StatusToCalculate, claim.Status)
	}
	if !claim.RebateAmount.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected rebate amount 12, got %s", claim.RebateAmount)
	}

	// Recalculation on the same period updates the same claim.
	resp, raw = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-claims/calculate", calculate)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recalculate claim: status %d: %s", resp.StatusCode, string(raw))
	}
	var recalculated struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, raw, &recalculated)
	if recalculated.ID != claim.ID {
		t.Fatalf("expected same claim %s, got %s", claim.ID, recalculated.ID)
	}
	if recalculated.Status != claimdomain.StatusPending {
		t.Fatalf("expected status %s, got %s", claimdomain.StatusPending, recalculated.Status)
	}

	advanceURL := env.baseURL + "/api/v1/rebate-claims/" + claim.ID + "/advance"
	resp, raw = doJSON(t, http.MethodPost, advanceURL, map[string]any{"target_status": claimdomain.StatusApproved})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve claim: status %d: %s", resp.StatusCode, string(raw))
	}

	// Approved claims are frozen against recalculation.
	resp, raw = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-claims/calculate", calculate)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status 409 recalculating approved claim, got %d: %s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, http.MethodPost, advanceURL, map[string]any{"target_status": claimdomain.StatusPaid})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay claim: status %d: %s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, http.MethodPost, advanceURL, map[string]any{"target_status": claimdomain.StatusApproved})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status 409 for backward transition, got %d: %s", resp.StatusCode, string(raw))
	}
}

func TestE2E_AgreementDeleteOrphansClaims(t *testing.T) {
	resetDatabase(t, env.db)

	productID := createProduct(t, "IBU-200", "Ibuprofen 200mg", nil, nil)

	resp, raw := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-agreements", agreementPayload("7", []string{productID}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create agreement: status %d: %s", resp.StatusCode, string(raw))
	}
	var agreement struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &agreement)

	resp, raw = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/rebate-claims/calculate", map[string]any{
		"agreement_id": agreement.ID,
		"product_id":   productID,
		"period_start": "2026-01-01",
		"period_end":   "2026-01-31",
		"accumulated":  "150",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("calculate claim: status %d: %s", resp.StatusCode, string(raw))
	}
	var claim struct {
		ID string `json:"id"`
	}
	decodeData(t, raw, &claim)

	resp, raw = doJSON(t, http.MethodDelete, env.baseURL+"/api/v1/rebate-agreements/"+agreement.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete agreement: status %d: %s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, http.MethodGet, env.baseURL+"/api/v1/rebate-claims/"+claim.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get claim after delete: status %d: %s", resp.StatusCode, string(raw))
	}
	var orphaned struct {
		Orphaned bool `json:"orphaned"`
	}
	decodeData(t, raw, &orphaned)
	if !orphaned.Orphaned {
		t.Fatalf("expected claim to be orphaned after agreement delete")
	}
}
