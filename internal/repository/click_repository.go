package repository

import (
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"gorm.io/gorm"
)

// ClickWithCode est le résultat de la jointure clics/liens utilisée par
// l'agrégateur de notifications : un clic récent accompagné du code de son lien.
type ClickWithCode struct {
	ID        uint
	LinkID    uint
	LinkCode  string
	Country   string
	City      string
	Device    string
	Browser   string
	ClickedAt time.Time
}

// ClickRepository définit les méthodes d'accès aux données pour les clics.
type ClickRepository interface {
	CreateClick(click *models.Click) error
	FindRecentWithCode(since time.Time, limit int) ([]ClickWithCode, error)
	FindClicksByLinkID(linkID uint) ([]models.Click, error)
}

// GormClickRepository est l'implémentation de ClickRepository utilisant GORM.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository crée et retourne une nouvelle instance de GormClickRepository.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// CreateClick insère un nouveau clic enrichi dans la base de données.
// La table est en append-only : aucune mise à jour n'est jamais effectuée.
func (r *GormClickRepository) CreateClick(click *models.Click) error {
	result := r.db.Create(click)
	return result.Error
}

// FindClicksByLinkID récupère tous les clics d'un lien, du plus récent au plus
// ancien. C'est la source du rapport d'analytics par code.
func (r *GormClickRepository) FindClicksByLinkID(linkID uint) ([]models.Click, error) {
	var clicks []models.Click
	result := r.db.Where("link_id = ?", linkID).
		Order("clicked_at DESC").
		Find(&clicks)
	if result.Error != nil {
		return nil, result.Error
	}
	return clicks, nil
}

// FindRecentWithCode récupère les clics depuis l'horodatage donné, joints à leur
// lien pour obtenir le code, du plus récent au plus ancien, limités à 'limit'.
// C'est la source des notifications dérivées du flux temps-réel.
func (r *GormClickRepository) FindRecentWithCode(since time.Time, limit int) ([]ClickWithCode, error) {
	var rows []ClickWithCode
	result := r.db.Model(&models.Click{}).
		Select("clicks.id, clicks.link_id, links.code AS link_code, clicks.country, clicks.city, clicks.device, clicks.browser, clicks.clicked_at").
		Joins("INNER JOIN links ON clicks.link_id = links.id").
		Where("clicks.clicked_at >= ?", since).
		Order("clicks.clicked_at DESC").
		Limit(limit).
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}
