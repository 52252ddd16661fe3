package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/notifications"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
)

// DefaultSinceWindow est la fenêtre par défaut du flux quand le paramètre
// 'since' est absent : les 5 dernières minutes.
const DefaultSinceWindow = 5 * time.Minute

// FeedBreakdown détaille la provenance des notifications d'un flux agrégé.
type FeedBreakdown struct {
	Emitted int `json:"emitted"`
	Clicks  int `json:"clicks"`
}

// NotificationService agrège les deux sources de notifications :
//   - les événements émis, vivants au plus quelques minutes dans le buffer mémoire;
//   - les événements dérivés, recalculés à chaque requête depuis les clics récents
//     joints à leur lien (aucun stockage propre).
type NotificationService struct {
	store     *notifications.NotificationStore
	clickRepo repository.ClickRepository
	pageSize  int
}

// NewNotificationService crée et retourne une nouvelle instance de NotificationService.
// pageSize plafonne le nombre de notifications dérivées des clics par requête.
func NewNotificationService(store *notifications.NotificationStore, clickRepo repository.ClickRepository, pageSize int) *NotificationService {
	return &NotificationService{
		store:     store,
		clickRepo: clickRepo,
		pageSize:  pageSize,
	}
}

// Emit ajoute un événement explicite au buffer éphémère et le retourne
// avec son identifiant et son horodatage assignés.
func (s *NotificationService) Emit(notifType, title, message, linkCode string, data map[string]string) models.Notification {
	return s.store.Emit(notifType, title, message, linkCode, data)
}

// ListEmittedSince retourne les événements émis postérieurs à 'since' ainsi que
// la taille totale du buffer après éviction.
func (s *NotificationService) ListEmittedSince(since time.Time) ([]models.Notification, int) {
	return s.store.ListSince(since), s.store.Len()
}

// ListSince fusionne les deux sources et retourne les notifications triées par
// horodatage décroissant, accompagnées du détail de provenance.
// Un buffer d'événements émis vide ou indisponible ne fait jamais échouer le
// flux : les notifications dérivées des clics sont servies quoi qu'il arrive.
// Une erreur de la base (source dérivée) est en revanche fatale pour la requête.
func (s *NotificationService) ListSince(since time.Time) ([]models.Notification, FeedBreakdown, error) {
	emitted := s.store.ListSince(since)

	recentClicks, err := s.clickRepo.FindRecentWithCode(since, s.pageSize)
	if err != nil {
		return nil, FeedBreakdown{}, fmt.Errorf("error querying recent clicks: %w", err)
	}

	derived := make([]models.Notification, 0, len(recentClicks))
	for _, click := range recentClicks {
		derived = append(derived, clickNotification(click))
	}

	merged := make([]models.Notification, 0, len(emitted)+len(derived))
	merged = append(merged, emitted...)
	merged = append(merged, derived...)

	// Tri global par horodatage décroissant : les deux sources sont déjà triées
	// individuellement mais s'entrelacent dans le temps.
	sort.SliceStable(merged, func(i, j int) bool {
		ti, errI := time.Parse(time.RFC3339Nano, merged[i].Timestamp)
		tj, errJ := time.Parse(time.RFC3339Nano, merged[j].Timestamp)
		if errI != nil || errJ != nil {
			return false
		}
		return ti.After(tj)
	})

	breakdown := FeedBreakdown{Emitted: len(emitted), Clicks: len(derived)}
	return merged, breakdown, nil
}

// clickNotification transforme un clic récent en notification synthétique de type "click".
// L'identifiant est dérivé de l'ID du clic : deux requêtes successives produisent
// le même identifiant pour le même clic, ce qui permet la déduplication côté client.
func clickNotification(click repository.ClickWithCode) models.Notification {
	location := "Unknown"
	if click.City != "" {
		location = fmt.Sprintf("%s, %s", click.City, click.Country)
	} else if click.Country != "" {
		location = click.Country
	}

	timestamp := click.ClickedAt.Format(time.RFC3339Nano)

	return models.Notification{
		ID:       fmt.Sprintf("notif-%d", click.ID),
		Type:     models.NotificationTypeClick,
		Title:    "New Click!",
		Message:  fmt.Sprintf("Your link /%s was just clicked", click.LinkCode),
		LinkCode: click.LinkCode,
		Data: map[string]string{
			"location":  location,
			"device":    fmt.Sprintf("%s - %s", click.Device, click.Browser),
			"timestamp": timestamp,
		},
		Timestamp: timestamp,
		Read:      false,
	}
}
