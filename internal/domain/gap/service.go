package gap

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexahealth/qscore/internal/domain/measure"
	"github.com/nexahealth/qscore/internal/domain/outreach"
	"github.com/nexahealth/qscore/internal/platform/messaging"
)

// complianceThreshold derives a compliant flag from the raw value when
// the import file does not carry one.
const complianceThreshold = 0.8

// Enqueuer is the slice of the outreach service bulk enqueue needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, req outreach.EnqueueRequest) (*outreach.OutreachRecord, error)
}

type Service struct {
	gaps     Repository
	enqueuer Enqueuer
	log      zerolog.Logger
}

func NewService(gaps Repository, enqueuer Enqueuer, log zerolog.Logger) *Service {
	return &Service{gaps: gaps, enqueuer: enqueuer, log: log}
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"2006-01",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}

// ImportCSV reads gap rows from a CSV export. Expected columns are
// patient_id, clinic, measure, value, date, compliant; column order is
// taken from the header. Coercion is lenient: a missing compliant
// column is derived from value, unparseable dates fall back to now, and
// rows without a clinic or a resolvable measure are skipped rather than
// failing the import. When replace is set the previous dataset is
// dropped first.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, replace bool) (ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportReport{}, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"clinic", "measure"} {
		if _, ok := col[required]; !ok {
			return ImportReport{}, fmt.Errorf("missing required column: %s", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var report ImportReport
	var gaps []*MeasureGap
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportReport{}, fmt.Errorf("read row: %w", err)
		}

		clinic := field(row, "clinic")
		code := measure.Resolve(field(row, "measure"))
		if clinic == "" || code == "" {
			report.Skipped++
			continue
		}

		value, _ := strconv.ParseFloat(field(row, "value"), 64)
		compliant := value >= complianceThreshold
		if raw := field(row, "compliant"); raw != "" {
			compliant = parseBool(raw)
		}
		recordedAt, ok := parseDate(field(row, "date"))
		if !ok {
			recordedAt = time.Now().UTC()
		}

		gaps = append(gaps, &MeasureGap{
			PatientID:   field(row, "patient_id"),
			Clinic:      clinic,
			MeasureCode: code,
			Value:       value,
			Compliant:   compliant,
			RecordedAt:  recordedAt,
		})
		report.Imported++
	}

	if replace {
		if err := s.gaps.DeleteAll(ctx); err != nil {
			return ImportReport{}, err
		}
	}
	if len(gaps) > 0 {
		if err := s.gaps.BulkInsert(ctx, gaps); err != nil {
			return ImportReport{}, err
		}
	}

	s.log.Info().Int("imported", report.Imported).Int("skipped", report.Skipped).Bool("replace", replace).Msg("gap import finished")
	return report, nil
}

func (s *Service) ListGaps(ctx context.Context, filter ListFilter, limit, offset int) ([]*MeasureGap, int, error) {
	if filter.MeasureCode != "" {
		code := measure.Resolve(filter.MeasureCode)
		if code == "" {
			return nil, 0, fmt.Errorf("unknown measure: %s", filter.MeasureCode)
		}
		filter.MeasureCode = code
	}
	return s.gaps.List(ctx, filter, limit, offset)
}

func (s *Service) Clinics(ctx context.Context) ([]string, error) {
	return s.gaps.Clinics(ctx)
}

func (s *Service) Measures(ctx context.Context) ([]string, error) {
	return s.gaps.Measures(ctx)
}

// ExportCSV writes the filtered dataset as CSV, mirroring the import
// column layout.
func (s *Service) ExportCSV(ctx context.Context, filter ListFilter, w io.Writer) error {
	const exportLimit = 100000
	items, _, err := s.ListGaps(ctx, filter, exportLimit, 0)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"patient_id", "clinic", "measure", "value", "date", "compliant"}); err != nil {
		return err
	}
	for _, g := range items {
		record := []string{
			g.PatientID,
			g.Clinic,
			g.MeasureCode,
			strconv.FormatFloat(g.Value, 'f', -1, 64),
			g.RecordedAt.Format("2006-01-02"),
			strconv.FormatBool(g.Compliant),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary computes per-measure compliance rates against the registry
// targets for the dashboard.
func (s *Service) Summary(ctx context.Context, clinic string) ([]MeasureSummary, error) {
	const summaryLimit = 100000
	items, _, err := s.gaps.List(ctx, ListFilter{Clinic: clinic}, summaryLimit, 0)
	if err != nil {
		return nil, err
	}

	type agg struct{ total, compliant int }
	byCode := make(map[string]*agg)
	for _, g := range items {
		a, ok := byCode[g.MeasureCode]
		if !ok {
			a = &agg{}
			byCode[g.MeasureCode] = a
		}
		a.total++
		if g.Compliant {
			a.compliant++
		}
	}

	var summaries []MeasureSummary
	for _, def := range measure.All() {
		a, ok := byCode[def.Code]
		if !ok {
			continue
		}
		rate := float64(a.compliant) / float64(a.total)
		summaries = append(summaries, MeasureSummary{
			MeasureCode:    def.Code,
			MeasureDisplay: def.Display,
			Patients:       a.total,
			Compliant:      a.compliant,
			Rate:           rate,
			Target:         def.Target,
			MeetsTarget:    rate >= def.Target,
		})
	}
	return summaries, nil
}

// BulkEnqueueReport summarizes a bulk outreach run.
type BulkEnqueueReport struct {
	Enqueued int `json:"enqueued"`
	Errors   int `json:"errors"`
}

// BulkEnqueue queues outreach for every non-compliant patient matching
// the filter. Individual enqueue failures are counted, not fatal.
func (s *Service) BulkEnqueue(ctx context.Context, filter ListFilter, channel string) (BulkEnqueueReport, error) {
	const bulkLimit = 100000
	filter.OnlyNonCompliant = true
	items, _, err := s.ListGaps(ctx, filter, bulkLimit, 0)
	if err != nil {
		return BulkEnqueueReport{}, err
	}

	var report BulkEnqueueReport
	for _, g := range items {
		_, err := s.enqueuer.Enqueue(ctx, outreach.EnqueueRequest{
			PatientID: g.PatientID,
			Measure:   g.MeasureCode,
			Channel:   messaging.Channel(channel),
		})
		if err != nil {
			s.log.Warn().Err(err).Str("patient_id", g.PatientID).Str("measure", g.MeasureCode).Msg("bulk enqueue failed")
			report.Errors++
			continue
		}
		report.Enqueued++
	}

	s.log.Info().Int("enqueued", report.Enqueued).Int("errors", report.Errors).Msg("bulk outreach finished")
	return report, nil
}
