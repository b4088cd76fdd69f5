package stubs

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"invitationmetrics/src/domain/entities"
)

type InvitationEventStub struct {
	event entities.InvitationEvent
}

func NewInvitationEventStub() InvitationEventStub {
	event := entities.InvitationEvent{
		TenantID:   "tenant-" + gofakeit.LetterN(6),
		AccountID:  "account-" + gofakeit.LetterN(6),
		ExternalID: "inv_" + gofakeit.UUID(),
		SenderID:   fmt.Sprintf("sender_%04d", gofakeit.Number(0, 9999)),
		ReceivedAt: gofakeit.DateRange(
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		).UTC(),
	}

	return InvitationEventStub{event: event}
}

func (s InvitationEventStub) WithAccount(tenantID string, accountID string) InvitationEventStub {
	s.event.TenantID = tenantID
	s.event.AccountID = accountID
	return s
}

func (s InvitationEventStub) WithExternalID(externalID string) InvitationEventStub {
	s.event.ExternalID = externalID
	return s
}

func (s InvitationEventStub) WithReceivedAt(receivedAt time.Time) InvitationEventStub {
	s.event.ReceivedAt = receivedAt.UTC()
	return s
}

func (s InvitationEventStub) Get() entities.InvitationEvent {
	return s.event
}
