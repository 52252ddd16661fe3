package models

// Types de notifications acceptés par le buffer éphémère et le flux agrégé.
const (
	NotificationTypeClick     = "click"
	NotificationTypeSuccess   = "success"
	NotificationTypeWarning   = "warning"
	NotificationTypeMilestone = "milestone"
	NotificationTypeExpiring  = "expiring"
	NotificationTypeError     = "error"
	NotificationTypeInfo      = "info"
)

// Notification représente un événement du flux temps-réel consommé par le
// front-end via polling. Elle n'est JAMAIS persistée dans la base relationnelle :
// soit elle vit au plus 5 minutes dans le buffer en mémoire (événement émis),
// soit elle est recalculée à chaque requête depuis la table des clics (événement dérivé).
type Notification struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	LinkCode  string            `json:"linkCode,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp string            `json:"timestamp"` // Format ISO 8601 (RFC3339)
	Read      bool              `json:"read"`
}

// IsValidNotificationType vérifie qu'un type de notification fait partie des types connus.
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationTypeClick, NotificationTypeSuccess, NotificationTypeWarning,
		NotificationTypeMilestone, NotificationTypeExpiring, NotificationTypeError,
		NotificationTypeInfo:
		return true
	}
	return false
}
