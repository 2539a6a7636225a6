package domain

import (
	"context"
)

// TrendReport summarises the journaled fasting readings of a session
type TrendReport struct {
	Readings       int     `json:"readings"`
	AverageFasting float64 `json:"averageFasting"`
	Status         string  `json:"status"`
}

// JournalService records submissions beyond the session's latest value
type JournalService interface {
	RecordLabResult(ctx context.Context, sessionKey, username string, result LabResult) error
	RecordMedicationPlan(ctx context.Context, sessionKey, username string, plan MedicationPlan) error
	LabHistory(ctx context.Context, sessionKey string, limit int) ([]LabResult, error)
	// LatestMedicationPlan returns nil when no plan was journaled
	LatestMedicationPlan(ctx context.Context, sessionKey string) (*MedicationPlan, error)
	Trend(ctx context.Context, sessionKey string) (*TrendReport, error)
}

// AdviceService produces a short care tip for the patient's current state
type AdviceService interface {
	Advise(ctx context.Context, snap Snapshot) (string, error)
}

// Notifier pushes a plain text message to a chat
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}
