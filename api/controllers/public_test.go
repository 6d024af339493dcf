package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/internal/links"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
)

func testGenerator(t *testing.T, secret string) *links.Generator {
	t.Helper()
	generator, err := links.NewGenerator(config.LinksConfig{
		BaseURL: "https://links.tawseel.example.com",
		Secret:  secret,
		TTL:     time.Hour,
	})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return generator
}

// linkQuery builds the id/exp/sig query for a freshly generated link.
func linkQuery(t *testing.T, generator *links.Generator, orderID uuid.UUID, action links.Action) string {
	t.Helper()
	link, err := generator.Build(orderID, action)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parsing link: %v", err)
	}
	return parsed.RawQuery
}

func TestPublicViewOrderServesSummary(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "view-secret")

	req := httptest.NewRequest(http.MethodGet, "/o/view?"+linkQuery(t, generator, order.ID, links.ActionView), nil)
	rec := httptest.NewRecorder()
	PublicViewOrder(svc, generator, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data orderView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data.OrderNumber != order.OrderNumber {
		t.Fatalf("unexpected order number %d", envelope.Data.OrderNumber)
	}
	if strings.Contains(rec.Body.String(), "branch_id") {
		t.Fatal("customer view must not expose internal fields")
	}
}

func TestPublicViewOrderRejectsWrongAction(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "view-secret")

	// a confirm link must not open the view surface
	req := httptest.NewRequest(http.MethodGet, "/o/view?"+linkQuery(t, generator, order.ID, links.ActionConfirm), nil)
	rec := httptest.NewRecorder()
	PublicViewOrder(svc, generator, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPublicConfirmOrderForwardsDate(t *testing.T) {
	order := sampleOrder()
	order.Kind = enums.OrderKindInstallation
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "confirm-secret")

	target := "/o/confirm?" + linkQuery(t, generator, order.ID, links.ActionConfirm)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"date":"2026-07-15"}`))
	rec := httptest.NewRecorder()
	PublicConfirmOrder(svc, generator, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastDate.Format("2006-01-02") != "2026-07-15" {
		t.Fatalf("date not forwarded: %v", svc.lastDate)
	}
}

func TestPublicConfirmOrderRejectsMalformedDate(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "confirm-secret")

	target := "/o/confirm?" + linkQuery(t, generator, order.ID, links.ActionConfirm)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"date":"15/07/2026"}`))
	rec := httptest.NewRecorder()
	PublicConfirmOrder(svc, generator, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".pdf")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("writing part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestPublicCompleteOrderReadsDeliveryProof(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "complete-secret")
	media := config.MediaConfig{SignedProofMaxMB: 5, PhotoMaxMB: 10}

	body, contentType := multipartBody(t, map[string][]byte{"signed_file": []byte("%PDF-1.4 proof")})
	target := "/o/complete?" + linkQuery(t, generator, order.ID, links.ActionComplete)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	PublicCompleteOrder(svc, generator, media, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPublicCompleteOrderRejectsNonMultipart(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "complete-secret")
	media := config.MediaConfig{SignedProofMaxMB: 5, PhotoMaxMB: 10}

	target := "/o/complete?" + linkQuery(t, generator, order.ID, links.ActionComplete)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	PublicCompleteOrder(svc, generator, media, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPublicCompleteOrderRejectsExpiredLink(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	generator := testGenerator(t, "complete-secret")

	target := "/o/complete?id=" + order.ID.String() + "&exp=1000&sig=deadbeef"
	req := httptest.NewRequest(http.MethodPost, target, nil)
	rec := httptest.NewRecorder()
	PublicCompleteOrder(svc, generator, config.MediaConfig{SignedProofMaxMB: 5, PhotoMaxMB: 10}, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
