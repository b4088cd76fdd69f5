package comparer

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"invitationmetrics/src/domain/entities"
)

func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var t T
	return cmpopts.IgnoreFields(t, fields...)
}

// IgnoreRollupUpdatedAt compares rollups by content only. UpdatedAt changes on every run.
func IgnoreRollupUpdatedAt() cmp.Option {
	return IgnoreFieldsFor[entities.DailyRollup]("UpdatedAt")
}
