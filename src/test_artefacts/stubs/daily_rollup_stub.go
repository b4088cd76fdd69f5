package stubs

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"invitationmetrics/src/domain/entities"
)

type DailyRollupStub struct {
	rollup entities.DailyRollup
}

func NewDailyRollupStub() DailyRollupStub {
	return DailyRollupStub{rollup: entities.DailyRollup{
		TenantID:  "tenant-" + gofakeit.LetterN(6),
		AccountID: "account-" + gofakeit.LetterN(6),
		Date:      gofakeit.Date().UTC().Format("2006-01-02"),
		Count:     gofakeit.Number(0, 5),
		Status:    entities.RollupStatusOK,
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}}
}

func (s DailyRollupStub) WithAccount(tenantID string, accountID string) DailyRollupStub {
	s.rollup.TenantID = tenantID
	s.rollup.AccountID = accountID
	return s
}

func (s DailyRollupStub) WithDate(date string) DailyRollupStub {
	s.rollup.Date = date
	return s
}

func (s DailyRollupStub) WithCount(count int) DailyRollupStub {
	s.rollup.Count = count
	return s
}

func (s DailyRollupStub) Get() entities.DailyRollup {
	return s.rollup
}
