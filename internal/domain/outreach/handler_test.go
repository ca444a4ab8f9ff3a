package outreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	return NewHandler(f.svc), f, echo.New()
}

func TestHandler_Enqueue(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":"42","measure":"CBP","channel":"sms","destination":"+15550100"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Enqueue(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var o OutreachRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if o.Status != StatusQueued || o.MeasureCode != "CBP" {
		t.Errorf("unexpected record: %+v", o)
	}
	if strings.Contains(rec.Body.String(), `"token"`) {
		t.Error("token must not be serialized in API responses")
	}
}

func TestHandler_Enqueue_BadMeasure(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":"42","measure":"BMI"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Enqueue(c); err == nil {
		t.Error("expected error")
	}
}

func TestHandler_SendQueued(t *testing.T) {
	h, f, e := newTestHandler()
	f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})
	f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "43", Measure: "STATIN"})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.SendQueued(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report SendReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.Sent != 2 {
		t.Errorf("sent = %d, want 2", report.Sent)
	}
}

func TestHandler_GetOutreach_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.GetOutreach(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListOutreach_FilterByStatus(t *testing.T) {
	h, f, e := newTestHandler()
	f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})

	req := httptest.NewRequest(http.MethodGet, "/?status=queued", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListOutreach(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_MarkDispatched(t *testing.T) {
	h, f, e := newTestHandler()
	o, _ := f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})

	body := `{"provider_message_id":"SM123"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(o.ID.String())
	if err := h.MarkDispatched(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	got, _ := f.ledger.GetByID(context.Background(), o.ID)
	if got.Status != StatusSent || got.ProviderMessageID == nil || *got.ProviderMessageID != "SM123" {
		t.Errorf("record not updated: %+v", got)
	}
}

func TestHandler_MarkDispatched_Conflict(t *testing.T) {
	h, f, e := newTestHandler()
	o, _ := f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})
	f.svc.SendQueued(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(o.ID.String())
	err := h.MarkDispatched(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_MarkDispatchFailed(t *testing.T) {
	h, f, e := newTestHandler()
	o, _ := f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})

	body := `{"reason":"undeliverable"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(o.ID.String())
	if err := h.MarkDispatchFailed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.ledger.GetByID(context.Background(), o.ID)
	if got.Status != StatusFailed || got.FailReason == nil || *got.FailReason != "undeliverable" {
		t.Errorf("record not failed: %+v", got)
	}
}

func TestHandler_MarkDispatchFailed_AfterDispatch(t *testing.T) {
	h, f, e := newTestHandler()
	o, _ := f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})
	f.svc.SendQueued(context.Background())

	body := `{"reason":"bounced"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(o.ID.String())
	if err := h.MarkDispatchFailed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	got, _ := f.ledger.GetByID(context.Background(), o.ID)
	if got.Status != StatusFailed || got.FailReason == nil || *got.FailReason != "bounced" {
		t.Errorf("record not failed: %+v", got)
	}
}

func TestHandler_Funnel(t *testing.T) {
	h, f, e := newTestHandler()
	f.svc.Enqueue(context.Background(), EnqueueRequest{PatientID: "42", Measure: "CBP"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Funnel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"queued":1`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
