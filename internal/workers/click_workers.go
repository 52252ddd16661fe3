package workers

import (
	"log"
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/analytics"
	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
)

// StartClickWorkers démarre un pool de goroutines qui consomment les ClickEvents
// du channel et persistent les clics enrichis. Le pipeline est entièrement
// détaché du chemin de la redirection : au moment où un worker traite un
// événement, la réponse HTTP est déjà partie (ou en train de partir).
// Les workers s'arrêtent quand le channel est fermé.
func StartClickWorkers(workerCount int, clickEventsChan <-chan models.ClickEvent, clickRepo repository.ClickRepository, geoClient *analytics.GeoClient) {
	for i := 1; i <= workerCount; i++ {
		go clickWorker(i, clickEventsChan, clickRepo, geoClient)
	}
	log.Printf("[WORKER] %d workers d'analytics démarrés", workerCount)
}

// clickWorker est la boucle d'un worker : il lit les événements du channel
// et les traite un par un jusqu'à la fermeture du channel.
func clickWorker(id int, clickEventsChan <-chan models.ClickEvent, clickRepo repository.ClickRepository, geoClient *analytics.GeoClient) {
	for event := range clickEventsChan {
		processClickEvent(id, event, clickRepo, geoClient)
	}
	log.Printf("[WORKER %d] Channel fermé, arrêt du worker", id)
}

// processClickEvent enrichit un ClickEvent (user-agent puis géolocalisation)
// et insère la ligne de clic correspondante. Politique au-plus-une-fois :
// toute erreur est loggée puis avalée, jamais retentée ni remontée — la
// redirection a déjà réussi et le compteur a déjà été incrémenté.
func processClickEvent(workerID int, event models.ClickEvent, clickRepo repository.ClickRepository, geoClient *analytics.GeoClient) {
	deviceInfo := analytics.ParseUserAgent(event.UserAgent)

	// La géolocalisation se dégrade en "Unknown" sur timeout ou erreur
	country, countryCode, city, region := "Unknown", "XX", "Unknown", "Unknown"
	if geo, err := geoClient.Lookup(event.IPAddress); err != nil {
		log.Printf("[WORKER %d] Géolocalisation dégradée pour %s: %v", workerID, event.IPAddress, err)
	} else {
		country = geo.Country
		countryCode = geo.CountryCode
		city = geo.City
		region = geo.Region
	}

	referrer := event.Referrer
	if referrer == "" {
		referrer = "Direct"
	}

	clickedAt := event.Timestamp
	if clickedAt.IsZero() {
		clickedAt = time.Now()
	}

	click := &models.Click{
		LinkID:      event.LinkID,
		Country:     country,
		CountryCode: countryCode,
		City:        city,
		Region:      region,
		IPAddress:   event.IPAddress,
		Device:      deviceInfo.Device,
		Browser:     deviceInfo.Browser,
		OS:          deviceInfo.OS,
		Referrer:    referrer,
		UserAgent:   event.UserAgent,
		ClickedAt:   clickedAt,
	}

	if err := clickRepo.CreateClick(click); err != nil {
		log.Printf("[WORKER %d] Échec de l'enregistrement du clic pour le lien %d: %v", workerID, event.LinkID, err)
		return
	}
}
