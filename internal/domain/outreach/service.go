package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nexahealth/qscore/internal/domain/measure"
	"github.com/nexahealth/qscore/internal/domain/reading"
	"github.com/nexahealth/qscore/internal/domain/referral"
	"github.com/nexahealth/qscore/internal/platform/magiclink"
	"github.com/nexahealth/qscore/internal/platform/messaging"
)

// sendBatchSize caps how many queued rows one sweep picks up.
const sendBatchSize = 500

type Service struct {
	ledger    Repository
	codec     *magiclink.Codec
	sender    messaging.Sender
	templates *messaging.TemplateEngine
	readings  reading.Repository
	referrals *referral.Service

	baseURL       string
	schedulingURL string
	log           zerolog.Logger
}

func NewService(
	ledger Repository,
	codec *magiclink.Codec,
	sender messaging.Sender,
	templates *messaging.TemplateEngine,
	readings reading.Repository,
	referrals *referral.Service,
	baseURL, schedulingURL string,
	log zerolog.Logger,
) *Service {
	return &Service{
		ledger:        ledger,
		codec:         codec,
		sender:        sender,
		templates:     templates,
		readings:      readings,
		referrals:     referrals,
		baseURL:       baseURL,
		schedulingURL: schedulingURL,
		log:           log,
	}
}

// EnqueueRequest describes one outreach to queue.
type EnqueueRequest struct {
	PatientID   string            `json:"patient_id"`
	PatientName string            `json:"patient_name,omitempty"`
	Measure     string            `json:"measure"`
	Channel     messaging.Channel `json:"channel,omitempty"`
	Destination string            `json:"destination,omitempty"`
}

// Enqueue mints a magic-link token for the patient and measure and
// records a queued ledger row. Nothing is sent until the next sweep.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*OutreachRecord, error) {
	if req.PatientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	code := measure.Resolve(req.Measure)
	if code == "" {
		return nil, fmt.Errorf("unknown measure: %s", req.Measure)
	}
	if req.Channel == "" {
		req.Channel = messaging.ChannelSMS
	}
	if !req.Channel.Valid() {
		return nil, fmt.Errorf("unknown channel: %s", req.Channel)
	}

	token, err := s.codec.Mint(req.PatientID, code)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	o := &OutreachRecord{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		MeasureCode: code,
		Channel:     req.Channel,
		Destination: req.Destination,
		Status:      StatusQueued,
		Token:       token,
	}
	if err := s.ledger.Create(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("outreach_id", o.ID.String()).
		Str("patient_id", o.PatientID).
		Str("measure", o.MeasureCode).
		Str("channel", string(o.Channel)).
		Msg("outreach queued")
	return o, nil
}

// SendReport summarizes one queue sweep.
type SendReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// SendQueued sweeps queued ledger rows, renders each message, and hands
// it to the sender. Delivery outcome is written back per row; one bad
// row never stops the sweep.
func (s *Service) SendQueued(ctx context.Context) (SendReport, error) {
	queued, err := s.ledger.ListQueued(ctx, sendBatchSize)
	if err != nil {
		return SendReport{}, err
	}

	var report SendReport
	for _, o := range queued {
		body, err := s.renderMessage(o)
		if err != nil {
			s.failDispatch(ctx, o, err)
			report.Failed++
			continue
		}

		providerID, err := s.sender.Send(ctx, o.Channel, o.Destination, body)
		if err != nil {
			s.failDispatch(ctx, o, err)
			report.Failed++
			continue
		}

		if err := s.ledger.MarkSent(ctx, o.ID, providerID); err != nil {
			// The message went out; a ledger write failure must not
			// retrigger delivery for this row.
			s.log.Error().Err(err).Str("outreach_id", o.ID.String()).Msg("mark sent failed")
		}
		report.Sent++
	}

	s.log.Info().Int("sent", report.Sent).Int("failed", report.Failed).Msg("queue sweep finished")
	return report, nil
}

func (s *Service) renderMessage(o *OutreachRecord) (string, error) {
	display := o.MeasureCode
	if def, ok := measure.Lookup(o.MeasureCode); ok {
		display = def.Display
	}
	return s.templates.RenderOutreach(o.MeasureCode, map[string]string{
		"first_name": o.FirstName(),
		"measure":    display,
		"link":       s.baseURL + "/go?t=" + o.Token,
	})
}

func (s *Service) failDispatch(ctx context.Context, o *OutreachRecord, cause error) {
	s.log.Warn().Err(cause).Str("outreach_id", o.ID.String()).Msg("dispatch failed")
	if err := s.ledger.MarkFailed(ctx, o.ID, cause.Error()); err != nil {
		s.log.Error().Err(err).Str("outreach_id", o.ID.String()).Msg("mark failed failed")
	}
}

// MarkDispatched records provider confirmation for a queued outreach,
// e.g. from a delivery callback when an external worker does the send.
func (s *Service) MarkDispatched(ctx context.Context, id uuid.UUID, providerMessageID string) error {
	return s.ledger.MarkSent(ctx, id, providerMessageID)
}

// MarkDispatchFailed records a delivery failure for an outreach that has
// not been clicked yet, including a bounce reported after dispatch.
func (s *Service) MarkDispatchFailed(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		reason = "delivery failed"
	}
	return s.ledger.MarkFailed(ctx, id, reason)
}

func (s *Service) GetOutreach(ctx context.Context, id uuid.UUID) (*OutreachRecord, error) {
	return s.ledger.GetByID(ctx, id)
}

func (s *Service) ListOutreach(ctx context.Context, filter ListFilter, limit, offset int) ([]*OutreachRecord, int, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("invalid status: %s", filter.Status)
	}
	return s.ledger.List(ctx, filter, limit, offset)
}

// Funnel returns ledger counts grouped by lifecycle status.
func (s *Service) Funnel(ctx context.Context) (map[string]int, error) {
	return s.ledger.CountByStatus(ctx)
}

// Action is one entry in the click-through care menu.
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ClickResult is what the landing surface renders after a valid click.
type ClickResult struct {
	PatientID      string   `json:"patient_id"`
	MeasureCode    string   `json:"measure_code"`
	MeasureDisplay string   `json:"measure_display"`
	Actions        []Action `json:"actions"`
}

// HandleClick verifies a clicked token, stamps the first click on the
// ledger, and returns the care-action menu. A valid token whose ledger
// row is missing still gets the menu; the patient should never see an
// error for our bookkeeping.
func (s *Service) HandleClick(ctx context.Context, token string) (*ClickResult, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.MarkClicked(ctx, token); err != nil {
		s.log.Warn().Err(err).Str("patient_id", claims.PatientID).Msg("mark clicked failed")
	}

	display := claims.MeasureCode
	if def, ok := measure.Lookup(claims.MeasureCode); ok {
		display = def.Display
	}
	return &ClickResult{
		PatientID:      claims.PatientID,
		MeasureCode:    claims.MeasureCode,
		MeasureDisplay: display,
		Actions: []Action{
			{Label: "Enter blood pressure", URL: "/bp?t=" + token},
			{Label: "Schedule an appointment", URL: s.schedulingURL},
			{Label: "Request a referral", URL: "/referral?t=" + token},
		},
	}, nil
}

// VerifyToken checks a token without side effects, for rendering forms
// behind a link.
func (s *Service) VerifyToken(token string) error {
	_, err := s.codec.Verify(token)
	return err
}

// SubmissionResult reports what a reading submission did.
type SubmissionResult struct {
	Compliant bool `json:"compliant"`
}

// HandleReadingSubmission verifies the token, appends the reading, and
// completes the outreach when the reading satisfies the bound measure.
// The reading is recorded whether or not it is compliant.
func (s *Service) HandleReadingSubmission(ctx context.Context, token string, r measure.Reading) (*SubmissionResult, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	cr := &reading.ClinicalReading{
		PatientID:   claims.PatientID,
		MeasureCode: claims.MeasureCode,
		Systolic:    r.Systolic,
		Diastolic:   r.Diastolic,
		Value:       r.Value,
		Adherent:    r.Adherent,
		Source:      reading.SourcePatientPortal,
		ReportedAt:  time.Now().UTC(),
	}
	if err := s.readings.Create(ctx, cr); err != nil {
		return nil, fmt.Errorf("record reading: %w", err)
	}

	compliant := measure.Evaluate(claims.MeasureCode, r)
	if compliant {
		if err := s.ledger.MarkCompleted(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("complete outreach: %w", err)
		}
	}

	s.log.Info().
		Str("patient_id", claims.PatientID).
		Str("measure", claims.MeasureCode).
		Bool("compliant", compliant).
		Msg("reading submitted")
	return &SubmissionResult{Compliant: compliant}, nil
}

// HandleReferralSubmission verifies the token and files a referral
// request linked back to the outreach when the ledger row is found.
func (s *Service) HandleReferralSubmission(ctx context.Context, token, reason, freeText string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return err
	}

	rr := &referral.ReferralRequest{
		PatientID:   claims.PatientID,
		MeasureCode: claims.MeasureCode,
		Reason:      reason,
		FreeText:    freeText,
	}
	if o, err := s.ledger.GetByToken(ctx, token); err == nil {
		rr.OutreachID = &o.ID
	}
	return s.referrals.CreateRequest(ctx, rr)
}
