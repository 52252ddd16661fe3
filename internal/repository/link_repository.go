package repository

import (
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"gorm.io/gorm"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données
// pour les opérations sur les liens.
type LinkRepository interface {
	CreateLink(link *models.Link) error
	GetLinkByCode(code string) (*models.Link, error)
	GetAllLinks() ([]models.Link, error)
	DeleteLinkByCode(code string) error
	IncrementClicks(linkID uint) error
	DeactivateLink(linkID uint) error
	CountClicksByLinkID(linkID uint) (int, error)
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
// Cette fonction retourne *GormLinkRepository, qui implémente l'interface LinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink insère un nouveau lien dans la base de données.
// L'index unique sur 'code' garantit l'unicité globale : une collision remonte
// en erreur de contrainte, que le service traduit en conflit.
func (r *GormLinkRepository) CreateLink(link *models.Link) error {
	result := r.db.Create(link)
	return result.Error
}

// GetLinkByCode récupère un lien de la base de données en utilisant son code court.
// Il renvoie gorm.ErrRecordNotFound si aucun lien n'est trouvé avec ce code.
func (r *GormLinkRepository) GetLinkByCode(code string) (*models.Link, error) {
	var link models.Link
	result := r.db.Where("code = ?", code).First(&link)
	if result.Error != nil {
		return nil, result.Error
	}
	return &link, nil
}

// GetAllLinks récupère tous les liens de la base de données.
// Cette méthode est utilisée par le moniteur de liens et par le dashboard.
func (r *GormLinkRepository) GetAllLinks() ([]models.Link, error) {
	var links []models.Link
	result := r.db.Order("created_at").Find(&links)
	if result.Error != nil {
		return nil, result.Error
	}
	return links, nil
}

// DeleteLinkByCode supprime un lien et ses clics associés (suppression en cascade).
// Les deux suppressions sont effectuées dans une même transaction.
func (r *GormLinkRepository) DeleteLinkByCode(code string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var link models.Link
		if err := tx.Where("code = ?", code).First(&link).Error; err != nil {
			return err
		}
		if err := tx.Where("link_id = ?", link.ID).Delete(&models.Click{}).Error; err != nil {
			return err
		}
		return tx.Delete(&link).Error
	})
}

// IncrementClicks incrémente le compteur de clics d'un lien de manière atomique
// (UPDATE en place avec une expression SQL, jamais de lecture-modification-écriture
// en deux allers-retours) et met à jour l'horodatage du dernier clic.
func (r *GormLinkRepository) IncrementClicks(linkID uint) error {
	now := time.Now()
	result := r.db.Model(&models.Link{}).
		Where("id = ?", linkID).
		UpdateColumns(map[string]interface{}{
			"clicks":          gorm.Expr("clicks + ?", 1),
			"last_clicked_at": &now,
		})
	return result.Error
}

// DeactivateLink passe is_active à false pour un lien donné.
// La transition est à sens unique et idempotente : deux requêtes concurrentes
// peuvent désactiver le même lien sans danger.
func (r *GormLinkRepository) DeactivateLink(linkID uint) error {
	result := r.db.Model(&models.Link{}).
		Where("id = ?", linkID).
		UpdateColumn("is_active", false)
	return result.Error
}

// CountClicksByLinkID compte le nombre total de lignes de clics pour un lien donné.
// Ce compte peut différer du compteur rapide Link.Clicks si un enregistrement
// de clic a échoué après une redirection réussie (découplage accepté).
func (r *GormLinkRepository) CountClicksByLinkID(linkID uint) (int, error) {
	var count int64 // GORM retourne un int64 pour les comptes
	result := r.db.Model(&models.Click{}).Where("link_id = ?", linkID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(count), nil
}
