package channel

import (
	"context"

	"github.com/fxawebapp/fxa-front/internal/log"
)

// Notifier fans a message out to every context that might care: the parent
// frame, the other same-browser tabs, and the browser chrome listening on a
// dedicated WebChannel for account-update broadcasts.
type Notifier struct {
	iframe     Channel
	interTab   Channel
	webChannel Channel
}

// Representative commands carried by the notifier.
const (
	SignedInNotification      = "fxaccounts:login"
	SignedOutNotification     = "fxaccounts:logout"
	DeleteNotification        = "fxaccounts:delete"
	ProfileChangeNotification = "profile:change"
)

// NewNotifier builds a notifier over the three delivery paths. Any of them
// may be a NullChannel.
func NewNotifier(iframe, interTab, webChannel Channel) *Notifier {
	return &Notifier{
		iframe:     iframe,
		interTab:   interTab,
		webChannel: webChannel,
	}
}

// Trigger delivers the message on every path. Per-path failures are logged
// and do not stop the remaining deliveries; notification is best effort.
func (n *Notifier) Trigger(ctx context.Context, command string, data map[string]any) {
	for name, ch := range map[string]Channel{
		"iframe":     n.iframe,
		"intertab":   n.interTab,
		"webchannel": n.webChannel,
	} {
		if ch == nil {
			continue
		}
		if err := ch.Send(ctx, command, data); err != nil {
			log.LogWarnWithFields("notifier", "Notification delivery failed", map[string]any{
				"path":    name,
				"command": command,
				"error":   err.Error(),
			})
		}
	}
}

// On subscribes to a notification on the inter-tab path, which is the one
// same-process components publish on.
func (n *Notifier) On(command string, fn Handler) {
	n.interTab.OnCommand(command, fn)
}
