package domain

import (
	"fmt"
	"strings"
	"time"

	"invitationmetrics/src/helper/calendar"
)

const (
	// ComparisonWindowDays is the fixed length of the trailing comparison window.
	ComparisonWindowDays = 7

	// MaxRangeDays bounds a single request: every day of the range is written
	// in one batch.
	MaxRangeDays = 366
)

// reservedIDChars separam as partes das chaves naturais e das seeds do gerador.
const reservedIDChars = "|:"

// DateRange is an inclusive range of UTC calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange validates both bounds and the ordering between them.
func NewDateRange(from string, to string) (DateRange, error) {
	fromDay, err := calendar.ParseDay(from)
	if err != nil {
		return DateRange{}, NewValidationError("from", "must be a valid YYYY-MM-DD date")
	}

	toDay, err := calendar.ParseDay(to)
	if err != nil {
		return DateRange{}, NewValidationError("to", "must be a valid YYYY-MM-DD date")
	}

	if fromDay.After(toDay) {
		return DateRange{}, NewValidationError("from", "must be on or before to")
	}

	if days := int(toDay.Sub(fromDay)/(24*time.Hour)) + 1; days > MaxRangeDays {
		return DateRange{}, NewValidationError("to", fmt.Sprintf("range must not exceed %d days", MaxRangeDays))
	}

	return DateRange{From: fromDay, To: toDay}, nil
}

func (r DateRange) Days() []time.Time {
	return calendar.EnumerateDaysInclusive(r.From, r.To)
}

// QueryBounds returns the half-open instant interval [From, To+1d) covering
// every instant of the range's last day.
func (r DateRange) QueryBounds() (time.Time, time.Time) {
	return calendar.StartOfDay(r.From), calendar.NextDayStart(r.To)
}

// ComparisonWindow is the 7 day window immediately preceding From.
func (r DateRange) ComparisonWindow() DateRange {
	return DateRange{
		From: calendar.OffsetDays(r.From, -ComparisonWindowDays),
		To:   calendar.OffsetDays(r.From, -1),
	}
}

func (r DateRange) String() string {
	return calendar.FormatDay(r.From) + ".." + calendar.FormatDay(r.To)
}

// InvitationSeriesRequest carries the raw query parameters of a series request.
type InvitationSeriesRequest struct {
	TenantID  string
	AccountID string
	From      string
	To        string
}

// Validate checks the request and returns the parsed range.
func (r InvitationSeriesRequest) Validate() (DateRange, error) {
	if err := validateID("tenantId", r.TenantID); err != nil {
		return DateRange{}, err
	}

	if err := validateID("accountId", r.AccountID); err != nil {
		return DateRange{}, err
	}

	if r.From == "" {
		return DateRange{}, NewValidationError("from", "is required")
	}

	if r.To == "" {
		return DateRange{}, NewValidationError("to", "is required")
	}

	return NewDateRange(r.From, r.To)
}

func validateID(field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "is required")
	}

	if strings.ContainsAny(value, reservedIDChars) {
		return NewValidationError(field, fmt.Sprintf("must not contain any of %q", reservedIDChars))
	}

	return nil
}

// MetricDataPoint is one day of the series returned to callers.
// PreviousPeriodComparison is only set on the first point.
type MetricDataPoint struct {
	Date                     string `json:"date"`
	Value                    int    `json:"value"`
	Status                   string `json:"status"`
	PreviousPeriodComparison *int   `json:"previousPeriodComparison,omitempty"`
}
