package domain

// NotificationLevel classifies a user-visible notification.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
	NotificationInfo    NotificationLevel = "info"
)

// Notification is surfaced to the user when an operation settles.
type Notification struct {
	Level   NotificationLevel
	Title   string
	Message string
}
