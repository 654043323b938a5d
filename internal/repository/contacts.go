package repository

import (
	"context"
	"fmt"
	"strings"

	"booking-engine/internal/booking"
)

// Contacts finds or creates CRM contacts keyed by organization and email.
type Contacts struct {
	db querier
}

func NewContacts(p *Postgres) *Contacts {
	return &Contacts{db: p.pool}
}

// Resolve returns the contact id for the attendee's email, creating the
// contact on first sight. An attendee without email resolves to nil.
func (c *Contacts) Resolve(ctx context.Context, organizationID string, a booking.Attendee) (*string, error) {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if email == "" || !validID(organizationID) {
		return nil, nil
	}
	var id string
	err := c.db.QueryRow(ctx, `
		INSERT INTO contacts (organization_id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id::text`, organizationID, email, strings.TrimSpace(a.Name)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("resolve contact %s: %w", email, err)
	}
	return &id, nil
}
