package models

import "time"

// Click représente un clic enregistré sur un lien raccourci, avec ses données
// d'enrichissement (géolocalisation et appareil). La table est en append-only :
// les lignes ne sont jamais modifiées, et la suppression en cascade avec le
// lien est faite par le repository (DeleteLinkByCode), pas par le schéma.
type Click struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LinkID      uint      `gorm:"not null;index" json:"linkId"` // Plusieurs Clicks référencent un Link
	Country     string    `gorm:"size:100;default:'Unknown'" json:"country"`
	CountryCode string    `gorm:"size:8;default:'XX'" json:"countryCode"`
	City        string    `gorm:"size:100;default:'Unknown'" json:"city"`
	Region      string    `gorm:"size:100;default:'Unknown'" json:"region"`
	IPAddress   string    `gorm:"size:45" json:"ipAddress"` // 45 caractères pour couvrir IPv6
	Device      string    `gorm:"size:50" json:"device"`    // Desktop, Mobile ou Tablet
	Browser     string    `gorm:"size:50" json:"browser"`
	OS          string    `gorm:"size:100" json:"os"`
	Referrer    string    `gorm:"size:255;default:'Direct'" json:"referrer"`
	UserAgent   string    `gorm:"type:text" json:"userAgent"`
	ClickedAt   time.Time `gorm:"index" json:"clickedAt"` // Indexé pour les requêtes "depuis" du flux de notifications
}

// ClickEvent représente l'événement brut envoyé dans le channel des workers
// d'analytics au moment de la redirection. L'enrichissement (user-agent,
// géolocalisation) est effectué plus tard par le worker, jamais sur le chemin
// de la réponse HTTP.
type ClickEvent struct {
	LinkID    uint
	IPAddress string
	UserAgent string
	Referrer  string
	Timestamp time.Time
}
