package triage

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// Notifier delivers a short message to the user.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier shows a desktop notification.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// NotifySummary tells n how a triage batch went.
func NotifySummary(n Notifier, s Summary) error {
	title := fmt.Sprintf("pwdebug: %d failed test(s) triaged", s.Total())
	if err := n.Notify(title, s.String()); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
