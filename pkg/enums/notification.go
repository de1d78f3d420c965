package enums

import "fmt"

// NotificationType groups inbox entries; stored as text.
type NotificationType string

const (
	// NotificationTypePayoutUpdate covers every payout state change.
	NotificationTypePayoutUpdate NotificationType = "payout_update"
	// NotificationTypePayoutAlert is sent when a request sits unreviewed too long.
	NotificationTypePayoutAlert NotificationType = "payout_alert"
	NotificationTypeBalance     NotificationType = "balance_update"
)

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypePayoutUpdate, NotificationTypePayoutAlert, NotificationTypeBalance:
		return true
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	n := NotificationType(value)
	if !n.IsValid() {
		return "", fmt.Errorf("invalid notification type %q", value)
	}
	return n, nil
}
