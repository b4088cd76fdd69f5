package entities

import "time"

// InvitationEvent é o registro bruto de um convite recebido por uma conta.
// ExternalID é a chave natural e também a chave de persistência.
type InvitationEvent struct {
	TenantID   string    `json:"tenantId"`
	AccountID  string    `json:"accountId"`
	ExternalID string    `json:"externalId"`
	SenderID   string    `json:"senderId"`
	ReceivedAt time.Time `json:"receivedAt"`
}
