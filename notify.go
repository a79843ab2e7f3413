package auth

// NotificationKind enumerates the user-facing messages the core can emit.
type NotificationKind string

const (
	NotifySessionExpiring      NotificationKind = "expiring"
	NotifySessionExpired       NotificationKind = "expired"
	NotifySignedOut            NotificationKind = "signed_out"
	NotifySignInFailed         NotificationKind = "sign_in_failed"
	NotifySignOutFailed        NotificationKind = "sign_out_failed"
	NotifyRoleResolutionFailed NotificationKind = "role_resolution_failed"
)

// Notification is a presentation-free message; rendering (toasts, banners)
// is entirely the consumer's responsibility.
type Notification struct {
	Kind    NotificationKind
	Message string
}

// Notifier consumes notifications emitted by the core.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) {
	if f == nil {
		return
	}
	f(n)
}

type noopNotifier struct{}

func (noopNotifier) Notify(Notification) {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
