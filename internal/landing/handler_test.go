package landing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nexahealth/qscore/internal/domain/outreach"
	"github.com/nexahealth/qscore/internal/domain/reading"
	"github.com/nexahealth/qscore/internal/domain/referral"
	"github.com/nexahealth/qscore/internal/platform/magiclink"
	"github.com/nexahealth/qscore/internal/platform/messaging"
)

// -- In-memory stores --

type memLedger struct {
	store   map[uuid.UUID]*outreach.OutreachRecord
	byToken map[string]uuid.UUID
}

func newMemLedger() *memLedger {
	return &memLedger{store: make(map[uuid.UUID]*outreach.OutreachRecord), byToken: make(map[string]uuid.UUID)}
}

func (m *memLedger) Create(_ context.Context, o *outreach.OutreachRecord) error {
	o.ID = uuid.New()
	o.Status = outreach.StatusQueued
	m.store[o.ID] = o
	m.byToken[o.Token] = o.ID
	return nil
}

func (m *memLedger) GetByID(_ context.Context, id uuid.UUID) (*outreach.OutreachRecord, error) {
	o, ok := m.store[id]
	if !ok {
		return nil, outreach.ErrNotFound
	}
	return o, nil
}

func (m *memLedger) GetByToken(_ context.Context, token string) (*outreach.OutreachRecord, error) {
	id, ok := m.byToken[token]
	if !ok {
		return nil, outreach.ErrNotFound
	}
	return m.store[id], nil
}

func (m *memLedger) List(_ context.Context, _ outreach.ListFilter, _, _ int) ([]*outreach.OutreachRecord, int, error) {
	return nil, 0, nil
}

func (m *memLedger) ListQueued(_ context.Context, _ int) ([]*outreach.OutreachRecord, error) {
	var r []*outreach.OutreachRecord
	for _, o := range m.store {
		if o.Status == outreach.StatusQueued {
			r = append(r, o)
		}
	}
	return r, nil
}

func (m *memLedger) MarkSent(_ context.Context, id uuid.UUID, providerID string) error {
	o, ok := m.store[id]
	if !ok {
		return outreach.ErrNotFound
	}
	if !outreach.CanTransition(o.Status, outreach.StatusSent) {
		return outreach.ErrConflict
	}
	now := time.Now().UTC()
	o.Status = outreach.StatusSent
	o.SentAt = &now
	o.ProviderMessageID = &providerID
	return nil
}

func (m *memLedger) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	o, ok := m.store[id]
	if !ok {
		return outreach.ErrNotFound
	}
	if !outreach.CanTransition(o.Status, outreach.StatusFailed) {
		return outreach.ErrConflict
	}
	o.Status = outreach.StatusFailed
	o.FailReason = &reason
	return nil
}

func (m *memLedger) MarkClicked(_ context.Context, token string) error {
	id, ok := m.byToken[token]
	if !ok {
		return outreach.ErrNotFound
	}
	o := m.store[id]
	if o.ClickedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	o.ClickedAt = &now
	if o.Status == outreach.StatusSent {
		o.Status = outreach.StatusClicked
	}
	return nil
}

func (m *memLedger) MarkCompleted(_ context.Context, token string) error {
	id, ok := m.byToken[token]
	if !ok {
		return outreach.ErrNotFound
	}
	o := m.store[id]
	if o.CompletedAt != nil || o.Status == outreach.StatusFailed {
		return nil
	}
	now := time.Now().UTC()
	o.CompletedAt = &now
	o.Status = outreach.StatusCompleted
	return nil
}

func (m *memLedger) CountByStatus(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, o := range m.store {
		counts[o.Status]++
	}
	return counts, nil
}

type memReadings struct{ rows []*reading.ClinicalReading }

func (m *memReadings) Create(_ context.Context, r *reading.ClinicalReading) error {
	r.ID = uuid.New()
	m.rows = append(m.rows, r)
	return nil
}

func (m *memReadings) ListByPatient(_ context.Context, patientID string, _, _ int) ([]*reading.ClinicalReading, int, error) {
	var r []*reading.ClinicalReading
	for _, cr := range m.rows {
		if cr.PatientID == patientID {
			r = append(r, cr)
		}
	}
	return r, len(r), nil
}

func (m *memReadings) CountByPatient(_ context.Context, patientID string) (int, error) {
	_, n, _ := m.ListByPatient(context.Background(), patientID, 0, 0)
	return n, nil
}

type memReferrals struct{ rows []*referral.ReferralRequest }

func (m *memReferrals) Create(_ context.Context, rr *referral.ReferralRequest) error {
	rr.ID = uuid.New()
	m.rows = append(m.rows, rr)
	return nil
}

func (m *memReferrals) GetByID(_ context.Context, _ uuid.UUID) (*referral.ReferralRequest, error) {
	return nil, referral.ErrNotFound
}

func (m *memReferrals) List(_ context.Context, _ string, _, _ int) ([]*referral.ReferralRequest, int, error) {
	return m.rows, len(m.rows), nil
}

func (m *memReferrals) UpdateStatus(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

// -- Fixture --

type fixture struct {
	handler   *Handler
	echo      *echo.Echo
	svc       *outreach.Service
	ledger    *memLedger
	readings  *memReadings
	referrals *memReferrals
	codec     *magiclink.Codec
}

func newFixture() *fixture {
	f := &fixture{
		ledger:    newMemLedger(),
		readings:  &memReadings{},
		referrals: &memReferrals{},
		codec:     magiclink.NewCodec("test-secret", 10*24*time.Hour),
	}
	f.svc = outreach.NewService(
		f.ledger, f.codec, messaging.DemoSender{}, messaging.NewTemplateEngine(),
		f.readings, referral.NewService(f.referrals),
		"http://127.0.0.1:8001", "https://calendly.com/clinic/bp-check", zerolog.Nop(),
	)
	f.handler = NewHandler(f.svc, zerolog.Nop())
	f.echo = echo.New()
	f.handler.RegisterRoutes(f.echo)
	return f
}

func (f *fixture) enqueue(t *testing.T, patientID, measureCode string) *outreach.OutreachRecord {
	t.Helper()
	o, err := f.svc.Enqueue(context.Background(), outreach.EnqueueRequest{PatientID: patientID, Measure: measureCode})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return o
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

// -- Tests --

func TestMenu_ValidToken(t *testing.T) {
	f := newFixture()
	o := f.enqueue(t, "42", "CBP")

	rec := f.get("/go?t=" + url.QueryEscape(o.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Enter blood pressure", "Schedule an appointment", "Request a referral"} {
		if !strings.Contains(body, want) {
			t.Errorf("menu missing %q", want)
		}
	}
	if got := f.ledger.store[o.ID]; got.ClickedAt == nil {
		t.Error("click not stamped")
	}
}

func TestMenu_BadTokensGetOneGenericPage(t *testing.T) {
	f := newFixture()

	invalid := f.get("/go?t=garbage")
	if invalid.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d, want 401", invalid.Code)
	}

	expired := magiclink.NewCodec("test-secret", -time.Hour)
	token, _ := expired.Mint("42", "CBP")
	expiredRec := f.get("/go?t=" + url.QueryEscape(token))
	if expiredRec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d, want 401", expiredRec.Code)
	}

	if invalid.Body.String() != expiredRec.Body.String() {
		t.Error("expired and invalid tokens must render the identical page")
	}
}

func TestBPSubmit_CompliantCompletes(t *testing.T) {
	f := newFixture()
	o := f.enqueue(t, "42", "CBP")

	rec := f.postForm("/bp", url.Values{"t": {o.Token}, "sys": {"130"}, "dia": {"85"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/thanks" {
		t.Errorf("redirect = %q, want /thanks", loc)
	}
	if got := f.ledger.store[o.ID]; got.Status != outreach.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if len(f.readings.rows) != 1 {
		t.Errorf("readings = %d, want 1", len(f.readings.rows))
	}
}

func TestBPSubmit_NonCompliantStillRecorded(t *testing.T) {
	f := newFixture()
	o := f.enqueue(t, "42", "CBP")

	rec := f.postForm("/bp", url.Values{"t": {o.Token}, "sys": {"150"}, "dia": {"95"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := f.ledger.store[o.ID]; got.Status == outreach.StatusCompleted {
		t.Error("non-compliant reading must not complete the outreach")
	}
	if len(f.readings.rows) != 1 {
		t.Errorf("readings = %d, want 1", len(f.readings.rows))
	}
	if f.readings.rows[0].Source != reading.SourcePatientPortal {
		t.Errorf("source = %q", f.readings.rows[0].Source)
	}
}

func TestBPSubmit_BadToken(t *testing.T) {
	f := newFixture()
	rec := f.postForm("/bp", url.Values{"t": {"garbage"}, "sys": {"130"}, "dia": {"85"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(f.readings.rows) != 0 {
		t.Error("no reading may be stored for a bad token")
	}
}

func TestBPForm_RendersWithToken(t *testing.T) {
	f := newFixture()
	o := f.enqueue(t, "42", "CBP")

	rec := f.get("/bp?t=" + url.QueryEscape(o.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="sys"`) {
		t.Error("form missing systolic input")
	}
}

func TestReferralSubmit_FilesRequest(t *testing.T) {
	f := newFixture()
	o := f.enqueue(t, "42", "CBP")

	rec := f.postForm("/referral", url.Values{"t": {o.Token}, "reason": {"Cardiology"}, "ft": {"palpitations"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if len(f.referrals.rows) != 1 {
		t.Fatalf("referrals = %d, want 1", len(f.referrals.rows))
	}
	rr := f.referrals.rows[0]
	if rr.PatientID != "42" || rr.Reason != "Cardiology" || rr.FreeText != "palpitations" {
		t.Errorf("unexpected referral: %+v", rr)
	}
}

func TestThanks(t *testing.T) {
	f := newFixture()
	rec := f.get("/thanks")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "received") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
