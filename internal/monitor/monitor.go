package monitor

import (
	"fmt"
	"log"
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
	"github.com/Jaswanthnimmalla/TinyLink/internal/services"
)

// LinkMonitor parcourt périodiquement les liens et émet une notification
// "expiring" pour chaque lien actif dont la date d'expiration tombe dans le
// prochain intervalle de surveillance. Le moniteur ne désactive jamais rien
// lui-même : la désactivation reste la responsabilité exclusive du Gate.
type LinkMonitor struct {
	linkRepo repository.LinkRepository
	notifier *services.NotificationService
	interval time.Duration
	notified map[uint]bool // Liens déjà signalés, pour ne pas émettre en boucle
}

// NewLinkMonitor crée un moniteur de liens avec l'intervalle donné.
func NewLinkMonitor(linkRepo repository.LinkRepository, notifier *services.NotificationService, interval time.Duration) *LinkMonitor {
	return &LinkMonitor{
		linkRepo: linkRepo,
		notifier: notifier,
		interval: interval,
		notified: make(map[uint]bool),
	}
}

// Start lance la boucle de surveillance dans une goroutine dédiée.
// Elle s'exécute jusqu'à l'arrêt du processus.
func (m *LinkMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for range ticker.C {
			m.checkExpiringLinks()
		}
	}()
	log.Printf("[MONITOR] Moniteur de liens démarré (intervalle: %v)", m.interval)
}

// checkExpiringLinks effectue une passe de surveillance.
func (m *LinkMonitor) checkExpiringLinks() {
	links, err := m.linkRepo.GetAllLinks()
	if err != nil {
		log.Printf("[MONITOR] Erreur lors de la récupération des liens: %v", err)
		return
	}

	now := time.Now()
	horizon := now.Add(m.interval)

	// Oublier les liens supprimés depuis la dernière passe, sinon la map
	// grandit pour toute la durée de vie du processus
	present := make(map[uint]bool, len(links))
	for _, link := range links {
		present[link.ID] = true
	}
	for id := range m.notified {
		if !present[id] {
			delete(m.notified, id)
		}
	}

	for _, link := range links {
		if !link.IsActive || link.ExpiresAt == nil || m.notified[link.ID] {
			continue
		}
		// On ne signale que les liens pas encore expirés mais qui le seront
		// avant la prochaine passe
		if link.ExpiresAt.After(now) && link.ExpiresAt.Before(horizon) {
			m.notifier.Emit(
				models.NotificationTypeExpiring,
				"Link expiring soon",
				fmt.Sprintf("Your link /%s expires at %s", link.Code, link.ExpiresAt.Format(time.RFC3339)),
				link.Code,
				map[string]string{"expiresAt": link.ExpiresAt.Format(time.RFC3339)},
			)
			m.notified[link.ID] = true
			log.Printf("[MONITOR] Notification d'expiration émise pour le lien %s", link.Code)
		}
	}
}
