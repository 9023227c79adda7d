package domain

import "time"

// DeviceStatus is the stored state of a device authorization. Expiry is not
// a stored status: it is derived lazily from ExpiresAt at poll time, so the
// protocol stays correct even if no sweeper ever runs.
type DeviceStatus string

const (
	DeviceStatusPending  DeviceStatus = "pending"
	DeviceStatusApproved DeviceStatus = "approved"
	DeviceStatusDenied   DeviceStatus = "denied"
)

// DeviceAuthorization is one in-flight RFC 8628 device-flow session. The
// polling device holds the long device code; the human is shown the short
// user code. ConsumedAt marks that the single token issuance for an approval
// already happened.
type DeviceAuthorization struct {
	ID             string
	ClientID       string
	DeviceCodeHash string
	UserCode       string // normalized (no separators); unique among live records
	Scopes         []string
	Status         DeviceStatus
	PollInterval   int     // seconds; widened when the device polls too fast
	IdentityID     *string // approving user, set on approval
	ExpiresAt      time.Time
	LastPolledAt   *time.Time
	ConsumedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the session is past its absolute expiry.
func (d DeviceAuthorization) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// Terminal reports whether the record can no longer be approved or denied.
func (d DeviceAuthorization) Terminal(now time.Time) bool {
	return d.Status != DeviceStatusPending || d.Expired(now)
}
