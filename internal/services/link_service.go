package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm" // Nécessaire pour la gestion spécifique de gorm.ErrRecordNotFound

	apperrors "github.com/Jaswanthnimmalla/TinyLink/internal/errors"
	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
)

// Définition du jeu de caractères pour la génération des codes courts.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength est la longueur des codes générés automatiquement.
const DefaultCodeLength = 6

// maxGenerationRetries borne la boucle de retry en cas de collision d'un code généré.
// Les codes personnalisés, eux, ne sont jamais retentés : une collision est un conflit.
const maxGenerationRetries = 5

// codePattern valide les codes personnalisés : 6 à 8 caractères alphanumériques.
var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// LinkService est une structure qui fournit des méthodes pour la logique métier des liens :
// génération et réservation des codes, machine à états de résolution (le Gate)
// et vérification des mots de passe.
// IMPORTANT : Le champ doit être du type de l'interface (non-pointeur).
type LinkService struct {
	linkRepo repository.LinkRepository
}

// NewLinkService crée et retourne une nouvelle instance de LinkService.
func NewLinkService(linkRepo repository.LinkRepository) *LinkService {
	return &LinkService{
		linkRepo: linkRepo,
	}
}

// CreateLinkOptions regroupe les paramètres optionnels de création d'un lien.
type CreateLinkOptions struct {
	URL        string
	CustomCode string     // Vide pour laisser le service générer un code
	Password   string     // Mot de passe en clair, haché avant persistance
	ExpiresAt  *time.Time // Date limite absolue optionnelle
	MaxClicks  *int       // Plafond de clics optionnel
}

// GenerateCode génère un code court aléatoire d'une longueur spécifiée.
// Il utilise le package 'crypto/rand' pour éviter la prévisibilité.
func (s *LinkService) GenerateCode(length int) (string, error) {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		randomIndex, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("error generating random number: %w", err)
		}
		result[i] = charset[randomIndex.Int64()]
	}

	return string(result), nil
}

// ValidateCustomCode vérifie qu'un code personnalisé respecte le format ^[A-Za-z0-9]{6,8}$.
func (s *LinkService) ValidateCustomCode(code string) bool {
	return codePattern.MatchString(code)
}

// validateURL vérifie que l'URL de destination est bien formée et utilise http ou https.
func validateURL(rawURL string) error {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return &apperrors.ErrInvalidURL{URL: rawURL}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &apperrors.ErrInvalidURL{URL: rawURL}
	}
	return nil
}

// reserveGeneratedCode génère un code aléatoire unique, avec retry en cas de collision.
// Vérifie l'existence en base avant de retourner le code; la contrainte d'unicité
// reste le filet de sécurité final au moment de l'insertion.
func (s *LinkService) reserveGeneratedCode() (string, error) {
	for i := 0; i < maxGenerationRetries; i++ {
		code, err := s.GenerateCode(DefaultCodeLength)
		if err != nil {
			return "", fmt.Errorf("error generating short code: %w", err)
		}

		// Vérifie si le code généré existe déjà en base de données
		_, err = s.linkRepo.GetLinkByCode(code)
		if err != nil {
			// Si l'erreur est 'record not found' de GORM, cela signifie que le code est unique.
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return code, nil
			}
			// Si c'est une autre erreur de base de données, retourne l'erreur.
			return "", fmt.Errorf("database error checking code uniqueness: %w", err)
		}

		// Si aucune erreur (le code a été trouvé), cela signifie une collision.
		log.Printf("Le code '%s' existe déjà, nouvelle tentative de génération (%d/%d)...", code, i+1, maxGenerationRetries)
	}
	return "", &apperrors.ErrCodeGenerationFailed{Attempts: maxGenerationRetries}
}

// CreateLink crée un nouveau lien raccourci.
// Avec un code personnalisé : valide le format, puis vérifie l'unicité — une
// collision est un conflit retourné à l'appelant, jamais retentée.
// Sans code personnalisé : génère un code unique (avec retry borné).
func (s *LinkService) CreateLink(opts CreateLinkOptions) (*models.Link, error) {
	if err := validateURL(opts.URL); err != nil {
		return nil, err
	}

	var code string
	if opts.CustomCode != "" {
		if !s.ValidateCustomCode(opts.CustomCode) {
			return nil, &apperrors.ErrInvalidCode{Code: opts.CustomCode}
		}
		// Réservation : vérification d'existence atomiquement suivie de l'insertion.
		// L'index unique sur 'code' ferme la fenêtre entre les deux.
		_, err := s.linkRepo.GetLinkByCode(opts.CustomCode)
		if err == nil {
			return nil, &apperrors.ErrCodeConflict{Code: opts.CustomCode}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("database error checking code uniqueness: %w", err)
		}
		code = opts.CustomCode
	} else {
		generated, err := s.reserveGeneratedCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	// Hacher le mot de passe éventuel avant toute persistance.
	var passwordHash *string
	if opts.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		hashed := string(hash)
		passwordHash = &hashed
	}

	link := &models.Link{
		Code:      code,
		URL:       opts.URL,
		Clicks:    0,
		IsActive:  true,
		ExpiresAt: opts.ExpiresAt,
		MaxClicks: opts.MaxClicks,
		Password:  passwordHash,
	}

	// Persiste le nouveau lien dans la base de données via le repository
	if err := s.linkRepo.CreateLink(link); err != nil {
		// Collision perdue dans la fenêtre vérification/insertion : l'index unique tranche
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &apperrors.ErrCodeConflict{Code: code}
		}
		return nil, fmt.Errorf("error creating link in database: %w", err)
	}

	return link, nil
}

// ResolveLink est la machine à états de résolution (le Gate), évaluée dans cet ordre fixe :
//  1. code introuvable            -> ErrLinkNotFound
//  2. lien désactivé              -> ErrLinkUnavailable(inactive)
//  3. date d'expiration dépassée  -> désactivation PUIS ErrLinkUnavailable(date)
//  4. plafond de clics atteint    -> désactivation PUIS ErrLinkUnavailable(clicks)
//  5. mot de passe requis         -> ErrPasswordRequired (repasser par VerifyPassword)
//  6. sinon                       -> incrément atomique du compteur et retour du lien
//
// La désactivation (étapes 3 et 4) est effectuée de façon synchrone avant de
// retourner, pour que les requêtes suivantes observent l'état mis à jour.
// Deux requêtes concurrentes peuvent toutes deux passer l'étape 4 quand il ne
// reste qu'un clic : le dépassement d'une unité est accepté, la désactivation
// étant idempotente.
func (s *LinkService) ResolveLink(code string) (*models.Link, error) {
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrLinkNotFound{Code: code}
		}
		return nil, fmt.Errorf("database error resolving link: %w", err)
	}

	if !link.IsActive {
		return nil, &apperrors.ErrLinkUnavailable{Code: code, Reason: apperrors.ReasonInactive}
	}

	if link.IsExpired() {
		if err := s.linkRepo.DeactivateLink(link.ID); err != nil {
			log.Printf("Erreur lors de la désactivation du lien expiré %s: %v", code, err)
		}
		return nil, &apperrors.ErrLinkUnavailable{Code: code, Reason: apperrors.ReasonDate}
	}

	if link.HasReachedMaxClicks() {
		if err := s.linkRepo.DeactivateLink(link.ID); err != nil {
			log.Printf("Erreur lors de la désactivation du lien %s (plafond atteint): %v", code, err)
		}
		return nil, &apperrors.ErrLinkUnavailable{Code: code, Reason: apperrors.ReasonClicks, MaxClicks: *link.MaxClicks}
	}

	if link.IsPasswordProtected() {
		return nil, &apperrors.ErrPasswordRequired{Code: code}
	}

	// Résolution autorisée : incrément en place du compteur avant de retourner.
	// L'enregistrement détaillé du clic part ensuite dans le pipeline asynchrone,
	// sans jamais retarder la redirection.
	if err := s.linkRepo.IncrementClicks(link.ID); err != nil {
		return nil, fmt.Errorf("error incrementing click counter: %w", err)
	}

	return link, nil
}

// VerifyPassword vérifie le mot de passe d'un lien protégé.
// En cas de succès, applique les mêmes effets de bord que la résolution autorisée
// (incrément du compteur); en cas d'échec, aucun compteur n'est modifié.
func (s *LinkService) VerifyPassword(code string, password string) (*models.Link, error) {
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrLinkNotFound{Code: code}
		}
		return nil, fmt.Errorf("database error resolving link: %w", err)
	}

	if !link.IsPasswordProtected() {
		return nil, &apperrors.ErrNotPasswordProtected{Code: code}
	}

	// Comparaison en temps constant du hash bcrypt
	if err := bcrypt.CompareHashAndPassword([]byte(*link.Password), []byte(password)); err != nil {
		return nil, &apperrors.ErrInvalidPassword{Code: code}
	}

	if err := s.linkRepo.IncrementClicks(link.ID); err != nil {
		return nil, fmt.Errorf("error incrementing click counter: %w", err)
	}

	return link, nil
}

// GetLinkByCode récupère un lien via son code court, avec la même taxonomie
// d'erreurs que le reste du service. Utilisé par la vérification de
// disponibilité d'un code personnalisé.
func (s *LinkService) GetLinkByCode(code string) (*models.Link, error) {
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrLinkNotFound{Code: code}
		}
		return nil, fmt.Errorf("database error resolving link: %w", err)
	}
	return link, nil
}

// GetAllLinks retourne tous les liens, pour le dashboard et le moniteur.
func (s *LinkService) GetAllLinks() ([]models.Link, error) {
	return s.linkRepo.GetAllLinks()
}

// DeleteLink supprime un lien et ses clics (opération CRUD externe au Gate).
func (s *LinkService) DeleteLink(code string) error {
	if err := s.linkRepo.DeleteLinkByCode(code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.ErrLinkNotFound{Code: code}
		}
		return fmt.Errorf("error deleting link: %w", err)
	}
	return nil
}

// GetLinkStats récupère les statistiques pour un lien donné : le lien lui-même
// (avec son compteur rapide) et le nombre de lignes du registre détaillé des clics.
func (s *LinkService) GetLinkStats(code string) (*models.Link, int, error) {
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, &apperrors.ErrLinkNotFound{Code: code}
		}
		return nil, 0, err
	}

	count, err := s.linkRepo.CountClicksByLinkID(link.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting clicks: %w", err)
	}

	return link, count, nil
}
