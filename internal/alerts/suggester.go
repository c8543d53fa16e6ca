// Package alerts turns risk reports into stored pest alerts.
package alerts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"greenorbit/internal/engine"
	"greenorbit/internal/models"
)

// Suggester suggests alerts for the pests of a report
type Suggester struct {
	minLevel engine.Level
}

// NewSuggester creates a suggester raising alerts from Moderate risk up
func NewSuggester() *Suggester {
	return &Suggester{
		minLevel: engine.Moderate,
	}
}

// SuggestAlerts returns one Active alert per ranked pest at or above the minimum level,
// in report order. Alert confidence is the pest's probability.
func (s *Suggester) SuggestAlerts(farmID string, report engine.Report, now time.Time) []models.Alert {
	var suggestions []models.Alert
	for _, p := range report.ActivePests {
		if !p.RiskLevel.AtLeast(s.minLevel) {
			continue
		}
		suggestions = append(suggestions, models.Alert{
			ID:           newAlertID(),
			FarmID:       farmID,
			PestKey:      p.PestKey,
			PestName:     p.PestName,
			RiskLevel:    p.RiskLevel,
			Confidence:   p.Probability,
			TimeWindow:   p.TimeWindow,
			DetectedDate: now,
			Status:       models.AlertActive,
		})
	}
	return suggestions
}

func newAlertID() string {
	return "ALERT-" + strings.ToUpper(uuid.NewString()[:8])
}
