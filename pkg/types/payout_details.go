package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// PayoutDetails holds the method-specific fields a vendor supplies for
// receiving withdrawals. It is persisted as jsonb.
type PayoutDetails struct {
	BankName      string `json:"bank_name,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
	PayPalEmail   string `json:"paypal_email,omitempty"`
	MoMoNumber    string `json:"momo_number,omitempty"`
	MoMoProvider  string `json:"momo_provider,omitempty"`
}

// Clone returns an independent copy. All fields are values, so the struct copy
// is deep.
func (d PayoutDetails) Clone() PayoutDetails {
	return d
}

// Normalized trims whitespace from every field and lowercases the email.
func (d PayoutDetails) Normalized() PayoutDetails {
	return PayoutDetails{
		BankName:      strings.TrimSpace(d.BankName),
		AccountName:   strings.TrimSpace(d.AccountName),
		AccountNumber: strings.TrimSpace(d.AccountNumber),
		RoutingNumber: strings.TrimSpace(d.RoutingNumber),
		PayPalEmail:   strings.ToLower(strings.TrimSpace(d.PayPalEmail)),
		MoMoNumber:    strings.TrimSpace(d.MoMoNumber),
		MoMoProvider:  strings.TrimSpace(d.MoMoProvider),
	}
}

// Masked hides all but the last four characters of account identifiers.
func (d PayoutDetails) Masked() PayoutDetails {
	out := d
	out.AccountNumber = maskTail(d.AccountNumber)
	out.RoutingNumber = maskTail(d.RoutingNumber)
	out.MoMoNumber = maskTail(d.MoMoNumber)
	return out
}

func maskTail(value string) string {
	if len(value) <= 4 {
		return value
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// Value encodes the details as JSON text for a jsonb column.
func (d PayoutDetails) Value() (driver.Value, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("payout details: %w", err)
	}
	return string(raw), nil
}

// Scan decodes a jsonb column into PayoutDetails.
func (d *PayoutDetails) Scan(value interface{}) error {
	if value == nil {
		*d = PayoutDetails{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("payout details: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*d = PayoutDetails{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// PayoutSnapshot is the immutable copy of a vendor's payout destination taken
// when a withdrawal is requested.
type PayoutSnapshot struct {
	Method  string        `json:"method"`
	Details PayoutDetails `json:"details"`
}

func (s PayoutSnapshot) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("payout snapshot: %w", err)
	}
	return string(raw), nil
}

func (s *PayoutSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = PayoutSnapshot{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("payout snapshot: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*s = PayoutSnapshot{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
