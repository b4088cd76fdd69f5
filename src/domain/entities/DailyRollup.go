package entities

import "time"

const RollupStatusOK = "ok"

// DailyCount is always derived from the stored events of its day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyRollup is the persisted projection of a DailyCount. It is rewritten
// on every pipeline run for its day.
type DailyRollup struct {
	TenantID  string    `json:"tenantId"`
	AccountID string    `json:"accountId"`
	Date      string    `json:"date"`
	Count     int       `json:"count"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}
