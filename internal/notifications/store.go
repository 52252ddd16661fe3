package notifications

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
)

// NotificationStore est le buffer en mémoire des notifications émises.
// C'est un état mutable partagé entre les handlers : toutes les mutations sont
// sérialisées par un mutex. Le buffer est local au processus et volontairement
// éphémère : les événements de plus de TTL (5 minutes par défaut) sont évincés
// paresseusement à chaque lecture ou écriture, sans timer d'arrière-plan.
// L'instance est créée au démarrage du serveur et injectée dans les handlers
// qui en ont besoin (pas de variable globale de package).
type NotificationStore struct {
	mu            sync.Mutex
	notifications []models.Notification // Du plus récent au plus ancien
	ttl           time.Duration
}

// NewNotificationStore crée un buffer de notifications avec la durée de vie donnée.
func NewNotificationStore(ttl time.Duration) *NotificationStore {
	return &NotificationStore{
		notifications: make([]models.Notification, 0),
		ttl:           ttl,
	}
}

// newNotificationID génère un identifiant unique de la forme notif-<ms>-<aléa>.
func newNotificationID() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand ne doit jamais échouer; en dernier recours l'horodatage suffit
		return fmt.Sprintf("notif-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("notif-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

// evictExpiredLocked retire du buffer les notifications plus vieilles que le TTL.
// Le mutex doit être détenu par l'appelant. Parcours linéaire complet : le buffer
// reste petit par construction (5 minutes d'événements).
func (s *NotificationStore) evictExpiredLocked() {
	cutoff := time.Now().Add(-s.ttl)
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		ts, err := time.Parse(time.RFC3339Nano, n.Timestamp)
		if err == nil && ts.Before(cutoff) {
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
}

// Emit crée une notification à partir des champs fournis, lui assigne un
// identifiant et un horodatage ISO, et l'ajoute en tête du buffer.
// Les événements expirés sont évincés au passage.
func (s *NotificationStore) Emit(notifType, title, message, linkCode string, data map[string]string) models.Notification {
	notification := models.Notification{
		ID:        newNotificationID(),
		Type:      notifType,
		Title:     title,
		Message:   message,
		LinkCode:  linkCode,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Read:      false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()

	// Ajout en tête : le buffer est ordonné du plus récent au plus ancien
	s.notifications = append([]models.Notification{notification}, s.notifications...)

	return notification
}

// ListSince retourne une copie des notifications du buffer strictement
// postérieures à l'horodatage donné, du plus récent au plus ancien.
// L'éviction paresseuse est appliquée avant la lecture.
func (s *NotificationStore) ListSince(since time.Time) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()

	result := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		ts, err := time.Parse(time.RFC3339Nano, n.Timestamp)
		if err != nil || !ts.After(since) {
			continue
		}
		result = append(result, n)
	}
	return result
}

// Len retourne le nombre de notifications encore vivantes dans le buffer.
func (s *NotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	return len(s.notifications)
}
