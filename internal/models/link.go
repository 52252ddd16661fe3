package models

import "time"

// Link représente un lien raccourci dans la base de données.
// Les tags `gorm:"..."` définissent comment GORM doit mapper cette structure à une table SQL.
type Link struct {
	ID            uint       `gorm:"primaryKey" json:"id"`                    // ID est la clé primaire auto-incrémentée
	Code          string     `gorm:"uniqueIndex;size:8;not null" json:"code"` // Code doit être unique (6 à 8 caractères alphanumériques), indexé pour des recherches rapides
	URL           string     `gorm:"not null" json:"url"`                     // URL de destination (http/https uniquement)
	Clicks        int        `gorm:"not null;default:0" json:"clicks"`        // Compteur de clics, total de référence (incrémenté de manière atomique)
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`         // Horodatage de la création du lien (géré automatiquement par GORM)
	LastClickedAt *time.Time `json:"lastClickedAt"`                           // Horodatage du dernier clic (nil tant que le lien n'a jamais été visité)
	ExpiresAt     *time.Time `gorm:"index" json:"expiresAt"`                  // Date d'expiration optionnelle du lien, indexée pour des requêtes efficaces
	MaxClicks     *int       `json:"maxClicks"`                               // Plafond de clics optionnel; le lien est désactivé une fois atteint
	Password      *string    `gorm:"size:100" json:"-"`                       // Hash bcrypt du mot de passe optionnel (jamais sérialisé vers le client)
	IsActive      bool       `gorm:"default:true" json:"isActive"`            // Une fois à false, le lien n'est jamais réactivé par ce sous-système
}

// IsExpired vérifie si le lien a expiré.
// Retourne true si le lien a une date d'expiration et que cette date est dépassée.
func (l *Link) IsExpired() bool {
	// Si ExpiresAt est nil, le lien n'expire jamais
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*l.ExpiresAt)
}

// HasReachedMaxClicks vérifie si le plafond de clics du lien est atteint.
func (l *Link) HasReachedMaxClicks() bool {
	if l.MaxClicks == nil {
		return false
	}
	return l.Clicks >= *l.MaxClicks
}

// IsPasswordProtected indique si la résolution du lien exige un mot de passe.
func (l *Link) IsPasswordProtected() bool {
	return l.Password != nil && *l.Password != ""
}
