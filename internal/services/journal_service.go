package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/vladimiradmaev/chronic-care/internal/database"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

// Trend statuses
const (
	TrendHigh      = "Glucose trending high"
	TrendStable    = "Stable"
	TrendNoData    = "No readings yet"
	TrendThreshold = 160.0
)

// JournalRepository is the storage the journal writes to
type JournalRepository interface {
	SaveLabResult(ctx context.Context, record *database.LabResultRecord) error
	SaveMedicationPlan(ctx context.Context, record *database.MedicationPlanRecord) error
	LabResults(ctx context.Context, sessionKey string, limit int) ([]database.LabResultRecord, error)
	LatestMedicationPlan(ctx context.Context, sessionKey string) (*database.MedicationPlanRecord, error)
}

// JournalService keeps every lab result and medication plan a session submits
type JournalService struct {
	repo   JournalRepository
	logger *slog.Logger
}

func NewJournalService(repo JournalRepository) *JournalService {
	return &JournalService{
		repo:   repo,
		logger: logger.WithFields("service", "journal"),
	}
}

func (s *JournalService) RecordLabResult(ctx context.Context, sessionKey, username string, result domain.LabResult) error {
	record := &database.LabResultRecord{
		SessionKey:    sessionKey,
		Username:      username,
		FastingSugar:  result.FastingSugar,
		PostMealSugar: result.PostMealSugar,
		MeasuredAt:    result.Date,
	}
	if err := s.repo.SaveLabResult(ctx, record); err != nil {
		return apperrors.NewDatabaseError(err).WithContext("session", sessionKey)
	}
	return nil
}

func (s *JournalService) RecordMedicationPlan(ctx context.Context, sessionKey, username string, plan domain.MedicationPlan) error {
	record := &database.MedicationPlanRecord{
		SessionKey: sessionKey,
		Username:   username,
		Day:        plan.Day,
		Afternoon:  plan.Afternoon,
		Night:      plan.Night,
	}
	if err := s.repo.SaveMedicationPlan(ctx, record); err != nil {
		return apperrors.NewDatabaseError(err).WithContext("session", sessionKey)
	}
	return nil
}

// LabHistory returns journaled results, newest first
func (s *JournalService) LabHistory(ctx context.Context, sessionKey string, limit int) ([]domain.LabResult, error) {
	records, err := s.repo.LabResults(ctx, sessionKey, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("session", sessionKey)
	}

	results := make([]domain.LabResult, len(records))
	for i, r := range records {
		results[i] = domain.LabResult{
			FastingSugar:  r.FastingSugar,
			PostMealSugar: r.PostMealSugar,
			Date:          r.MeasuredAt,
		}
	}
	return results, nil
}

// LatestMedicationPlan returns the last journaled plan, nil when none was recorded
func (s *JournalService) LatestMedicationPlan(ctx context.Context, sessionKey string) (*domain.MedicationPlan, error) {
	record, err := s.repo.LatestMedicationPlan(ctx, sessionKey)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("session", sessionKey)
	}
	if record == nil {
		return nil, nil
	}
	return &domain.MedicationPlan{Day: record.Day, Afternoon: record.Afternoon, Night: record.Night}, nil
}

// Trend averages every journaled fasting reading of the session
func (s *JournalService) Trend(ctx context.Context, sessionKey string) (*domain.TrendReport, error) {
	history, err := s.LabHistory(ctx, sessionKey, 0)
	if err != nil {
		return nil, err
	}
	return AnalyzeTrend(history), nil
}

// AnalyzeTrend classifies readings by their mean fasting glucose
func AnalyzeTrend(readings []domain.LabResult) *domain.TrendReport {
	if len(readings) == 0 {
		return &domain.TrendReport{Status: TrendNoData}
	}

	var sum float64
	for _, r := range readings {
		sum += r.FastingSugar
	}
	mean := sum / float64(len(readings))

	status := TrendStable
	if mean > TrendThreshold {
		status = TrendHigh
	}
	return &domain.TrendReport{
		Readings:       len(readings),
		AverageFasting: mean,
		Status:         status,
	}
}

// NopJournal is used when no database is configured
type NopJournal struct{}

func (NopJournal) RecordLabResult(context.Context, string, string, domain.LabResult) error {
	return nil
}

func (NopJournal) RecordMedicationPlan(context.Context, string, string, domain.MedicationPlan) error {
	return nil
}

func (NopJournal) LabHistory(context.Context, string, int) ([]domain.LabResult, error) {
	return nil, apperrors.FromSentinel(apperrors.ErrFeatureUnavailable).WithContext("feature", "journal")
}

func (NopJournal) LatestMedicationPlan(context.Context, string) (*domain.MedicationPlan, error) {
	return nil, apperrors.FromSentinel(apperrors.ErrFeatureUnavailable).WithContext("feature", "journal")
}

func (NopJournal) Trend(context.Context, string) (*domain.TrendReport, error) {
	return nil, apperrors.FromSentinel(apperrors.ErrFeatureUnavailable).WithContext("feature", "journal")
}

const journalWriteTimeout = 5 * time.Second

// journalQueueSize bounds the submissions waiting for the database per session
const journalQueueSize = 32

// WatchStore journals every submitted lab result and medication plan of st,
// including resubmissions of the same values. Writes happen on a single
// goroutine; when the queue is full the submission is dropped and logged so
// store writers are never blocked by the database. Call the returned stop
// function to unsubscribe and wait for queued writes.
func WatchStore(sessionKey string, st *store.Store, journal domain.JournalService) (stop func()) {
	type entry struct {
		username   string
		lab        *domain.LabResult
		medication *domain.MedicationPlan
	}

	queue := make(chan entry, journalQueueSize)
	done := make(chan struct{})
	log := logger.WithFields("service", "journal", "session", sessionKey)

	go func() {
		defer close(done)
		for e := range queue {
			ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
			var err error
			switch {
			case e.lab != nil:
				err = journal.RecordLabResult(ctx, sessionKey, e.username, *e.lab)
			case e.medication != nil:
				err = journal.RecordMedicationPlan(ctx, sessionKey, e.username, *e.medication)
			}
			cancel()
			if err != nil {
				log.Error("Failed to journal submission", "error", err)
			}
		}
	}()

	enqueue := func(e entry) {
		select {
		case queue <- e:
		default:
			log.Warn("Journal queue full, dropping submission", "queue_size", journalQueueSize)
		}
	}

	cancel := st.Subscribe(func(op store.Op, _, next domain.Snapshot) {
		switch op {
		case store.OpUpdateTestResult:
			lab := next.LabResult
			enqueue(entry{username: next.Profile.Username, lab: &lab})
		case store.OpUpdateMedication:
			plan := next.Medication
			enqueue(entry{username: next.Profile.Username, medication: &plan})
		}
	})

	return func() {
		cancel()
		close(queue)
		<-done
	}
}
