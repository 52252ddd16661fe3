package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/Jaswanthnimmalla/TinyLink/internal/config"
	apperrors "github.com/Jaswanthnimmalla/TinyLink/internal/errors"
	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configure toutes les routes de l'API Gin et injecte les dépendances nécessaires.
// Le channel des ClickEvents est créé par le serveur (taille configurée via Viper)
// et partagé avec les workers d'analytics; le store de notifications vit dans
// le NotificationService, possédé explicitement par le serveur.
func SetupRoutes(router *gin.Engine, linkService *services.LinkService, analyticsService *services.AnalyticsService, notificationService *services.NotificationService, clickEventsChan chan<- models.ClickEvent, cfg *config.Config) {
	// Route de Health Check
	router.GET("/health", HealthCheckHandler)

	// Routes de l'API de gestion des liens
	api := router.Group("/api/v1")
	{
		api.POST("/links", CreateLinkHandler(linkService, cfg))
		api.GET("/links", ListLinksHandler(linkService))
		api.GET("/links/check", CheckCodeAvailabilityHandler(linkService))
		api.GET("/links/:code/stats", GetLinkStatsHandler(linkService))
		api.GET("/links/:code/analytics", GetLinkAnalyticsHandler(analyticsService))
		api.DELETE("/links/:code", DeleteLinkHandler(linkService, notificationService))
	}

	// Flux de notifications (agrégé) et buffer des événements émis
	router.GET("/notifications", NotificationsFeedHandler(notificationService))
	router.POST("/notifications/emit", EmitNotificationHandler(notificationService))
	router.GET("/notifications/emit", ListEmittedHandler(notificationService))

	// Vérification de mot de passe pour les liens protégés
	router.POST("/verify/:code", VerifyPasswordHandler(linkService, clickEventsChan))

	// Route de Redirection (au niveau racine pour les codes courts)
	router.GET("/:code", RedirectHandler(linkService, clickEventsChan))
}

// HealthCheckHandler gère la route /health pour vérifier l'état du service.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateLinkRequest représente le corps de la requête JSON pour la création d'un lien.
// Les noms de champs suivent le contrat consommé par le front-end.
type CreateLinkRequest struct {
	URL               string     `json:"url" binding:"required"`
	CustomCode        string     `json:"customCode,omitempty"`
	Password          string     `json:"password,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	ExpirationMinutes int        `json:"expirationMinutes,omitempty"` // Alternative à expiresAt : durée relative
	MaxClicks         *int       `json:"maxClicks,omitempty"`
}

// CreateLinkHandler gère la création d'une URL courte, avec code personnalisé,
// mot de passe, date d'expiration et plafond de clics optionnels.
func CreateLinkHandler(linkService *services.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		// Tente de lier le JSON de la requête à la structure CreateLinkRequest.
		// Gin gère la validation 'binding'.
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if req.MaxClicks != nil && *req.MaxClicks <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Validation failed",
				"details": gin.H{"maxClicks": "must be a positive integer"},
			})
			return
		}

		// Date d'expiration : absolue (expiresAt) ou relative (expirationMinutes).
		// La date absolue est prioritaire si les deux sont fournies.
		expiresAt := req.ExpiresAt
		if expiresAt == nil && req.ExpirationMinutes > 0 {
			computed := time.Now().Add(time.Duration(req.ExpirationMinutes) * time.Minute)
			expiresAt = &computed
		}

		link, err := linkService.CreateLink(services.CreateLinkOptions{
			URL:        req.URL,
			CustomCode: req.CustomCode,
			Password:   req.Password,
			ExpiresAt:  expiresAt,
			MaxClicks:  req.MaxClicks,
		})
		if err != nil {
			var invalidURL *apperrors.ErrInvalidURL
			var invalidCode *apperrors.ErrInvalidCode
			var conflict *apperrors.ErrCodeConflict
			switch {
			case errors.As(err, &invalidURL):
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "Validation failed",
					"details": gin.H{"url": "URL must use http or https protocol"},
				})
			case errors.As(err, &invalidCode):
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "Validation failed",
					"details": gin.H{"customCode": "Code must be 6-8 alphanumeric characters [A-Za-z0-9]"},
				})
			case errors.As(err, &conflict):
				c.JSON(http.StatusConflict, gin.H{"error": "Code already exists. Please choose a different custom code."})
			default:
				log.Printf("Error creating link: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create link"})
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":           link.ID,
			"code":         link.Code,
			"url":          link.URL,
			"clicks":       link.Clicks,
			"createdAt":    link.CreatedAt,
			"expiresAt":    link.ExpiresAt,
			"maxClicks":    link.MaxClicks,
			"isActive":     link.IsActive,
			"fullShortUrl": cfg.Server.BaseURL + "/" + link.Code,
			"hasPassword":  link.IsPasswordProtected(),
		})
	}
}

// ListLinksHandler retourne tous les liens pour le dashboard.
func ListLinksHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := linkService.GetAllLinks()
		if err != nil {
			log.Printf("Error fetching links: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
			return
		}
		c.JSON(http.StatusOK, links)
	}
}

// DeleteLinkHandler supprime un lien (et ses clics en cascade), puis émet une
// notification de confirmation dans le buffer éphémère.
func DeleteLinkHandler(linkService *services.LinkService, notificationService *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		if err := linkService.DeleteLink(code); err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
				return
			}
			log.Printf("Error deleting link %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete link"})
			return
		}

		notificationService.Emit(
			models.NotificationTypeWarning,
			"Link deleted",
			fmt.Sprintf("Your link /%s has been deleted", code),
			code,
			nil,
		)

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Link deleted successfully"})
	}
}

// RedirectHandler gère la résolution d'un code court : le Gate décide de la
// destination (redirection, page d'indisponibilité, page de mot de passe ou 404)
// et l'enregistrement du clic part dans le pipeline asynchrone sans bloquer la réponse.
func RedirectHandler(linkService *services.LinkService, clickEventsChan chan<- models.ClickEvent) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Récupère le code court de l'URL avec c.Param
		code := c.Param("code")

		link, err := linkService.ResolveLink(code)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			var unavailable *apperrors.ErrLinkUnavailable
			var passwordRequired *apperrors.ErrPasswordRequired
			switch {
			case errors.As(err, &notFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
			case errors.As(err, &unavailable):
				c.Redirect(http.StatusFound, unavailablePageURL(unavailable))
			case errors.As(err, &passwordRequired):
				// Le front-end présente la page de saisie du mot de passe
				c.Redirect(http.StatusFound, "/code/"+url.PathEscape(code))
			default:
				log.Printf("Error resolving link %s: %v", code, err)
				c.Redirect(http.StatusFound, "/expired?reason="+apperrors.ReasonUnknown)
			}
			return
		}

		// Le compteur est déjà incrémenté : on envoie l'événement de clic aux
		// workers sans bloquer. Si le channel est plein, l'événement est
		// abandonné (avec un log) plutôt que de retarder la redirection.
		enqueueClickEvent(clickEventsChan, c, link.ID, code)

		// Effectuer la redirection HTTP 302 (StatusFound) vers l'URL de destination.
		c.Redirect(http.StatusFound, link.URL)
	}
}

// unavailablePageURL construit l'URL de la page d'indisponibilité avec la raison
// et, selon les cas, le code et le plafond de clics en paramètres de requête.
func unavailablePageURL(e *apperrors.ErrLinkUnavailable) string {
	params := url.Values{}
	params.Set("reason", e.Reason)
	if e.Code != "" {
		params.Set("code", e.Code)
	}
	if e.Reason == apperrors.ReasonClicks && e.MaxClicks > 0 {
		params.Set("max", fmt.Sprintf("%d", e.MaxClicks))
	}
	return "/expired?" + params.Encode()
}

// enqueueClickEvent construit un ClickEvent depuis la requête courante et
// l'envoie dans le channel des workers.
// Utilise un `select` avec un `default` pour éviter de bloquer si le channel est plein.
func enqueueClickEvent(clickEventsChan chan<- models.ClickEvent, c *gin.Context, linkID uint, code string) {
	clickEvent := models.ClickEvent{
		LinkID:    linkID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		Timestamp: time.Now(),
	}

	select {
	case clickEventsChan <- clickEvent:
		// Événement envoyé avec succès
	default:
		log.Printf("Warning: le channel des ClickEvents est plein, clic abandonné pour %s.", code)
	}
}

// VerifyPasswordRequest représente le corps de la requête de vérification de mot de passe.
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// VerifyPasswordHandler vérifie le mot de passe d'un lien protégé. En cas de
// succès, les mêmes effets de bord que la résolution autorisée s'appliquent
// (compteur incrémenté par le service, clic capturé ici) et l'URL de destination
// est retournée au front-end qui effectue la redirection lui-même.
func VerifyPasswordHandler(linkService *services.LinkService, clickEventsChan chan<- models.ClickEvent) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		var req VerifyPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
			return
		}

		link, err := linkService.VerifyPassword(code, req.Password)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			var notProtected *apperrors.ErrNotPasswordProtected
			var invalidPassword *apperrors.ErrInvalidPassword
			switch {
			case errors.As(err, &notFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
			case errors.As(err, &notProtected):
				c.JSON(http.StatusBadRequest, gin.H{"error": "This link is not password protected"})
			case errors.As(err, &invalidPassword):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
			default:
				log.Printf("Error verifying password for %s: %v", code, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
			}
			return
		}

		enqueueClickEvent(clickEventsChan, c, link.ID, code)

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"redirectUrl": link.URL,
		})
	}
}

// GetLinkStatsHandler gère la récupération des statistiques pour un lien spécifique.
func GetLinkStatsHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		// Appeler le LinkService pour obtenir le lien et le nombre détaillé de clics.
		link, totalClicks, err := linkService.GetLinkStats(code)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
				return
			}
			log.Printf("Error retrieving stats for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code":          link.Code,
			"url":           link.URL,
			"clicks":        link.Clicks, // Compteur rapide, total de référence
			"totalClicks":   totalClicks, // Nombre de lignes du registre détaillé
			"createdAt":     link.CreatedAt,
			"lastClickedAt": link.LastClickedAt,
			"expiresAt":     link.ExpiresAt,
			"maxClicks":     link.MaxClicks,
			"isActive":      link.IsActive,
		})
	}
}

// CheckCodeAvailabilityHandler vérifie si un code personnalisé est encore libre.
// Utilisé par le front-end pendant la saisie, avant la soumission du formulaire.
func CheckCodeAvailabilityHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Code is required"})
			return
		}

		_, err := linkService.GetLinkByCode(code)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusOK, gin.H{"available": true, "code": code})
				return
			}
			log.Printf("Error checking code availability for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"available": false, "code": code})
	}
}

// GetLinkAnalyticsHandler sert le rapport d'analytics complet d'un lien :
// répartitions géographique, par appareil, navigateur, OS et provenance,
// regroupements temporels et derniers clics individuels.
func GetLinkAnalyticsHandler(analyticsService *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		link, analytics, err := analyticsService.GetLinkAnalytics(code)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
				return
			}
			log.Printf("Error fetching analytics for %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"link": gin.H{
				"code":          link.Code,
				"url":           link.URL,
				"totalClicks":   link.Clicks,
				"createdAt":     link.CreatedAt,
				"lastClickedAt": link.LastClickedAt,
				"expiresAt":     link.ExpiresAt,
				"maxClicks":     link.MaxClicks,
				"isActive":      link.IsActive,
				"hasPassword":   link.IsPasswordProtected(),
			},
			"analytics": gin.H{
				"totalTrackedClicks": analytics.TotalTrackedClicks,
				"geographic": gin.H{
					"countries":    analytics.Countries,
					"topCountries": analytics.TopCountries,
				},
				"devices":          analytics.Devices,
				"browsers":         analytics.Browsers,
				"operatingSystems": analytics.OperatingSystems,
				"referrers":        analytics.Referrers,
				"timeData": gin.H{
					"last7Days": analytics.ClicksByDay,
					"hourly":    analytics.Hourly,
				},
				"recentClicks": analytics.RecentClicks,
			},
		})
	}
}

// parseSinceParam lit le paramètre de requête 'since' (ISO 8601).
// Absent ou invalide, il se replie sur la fenêtre par défaut de 5 minutes :
// une valeur illisible ne doit pas casser la boucle de polling du client.
func parseSinceParam(c *gin.Context) time.Time {
	raw := c.Query("since")
	if raw == "" {
		return time.Now().Add(-services.DefaultSinceWindow)
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Now().Add(-services.DefaultSinceWindow)
	}
	return since
}

// NotificationsFeedHandler sert le flux agrégé : événements émis fusionnés avec
// les notifications dérivées des clics récents, triés du plus récent au plus ancien.
func NotificationsFeedHandler(notificationService *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		since := parseSinceParam(c)

		feed, breakdown, err := notificationService.ListSince(since)
		if err != nil {
			log.Printf("Error fetching notifications: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"notifications": feed,
			"count":         len(feed),
			"since":         since.Format(time.RFC3339Nano),
			"breakdown":     breakdown,
		})
	}
}

// EmitNotificationRequest représente le corps d'une émission de notification.
type EmitNotificationRequest struct {
	Type     string            `json:"type" binding:"required"`
	Title    string            `json:"title" binding:"required"`
	Message  string            `json:"message" binding:"required"`
	LinkCode string            `json:"linkCode,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// EmitNotificationHandler ajoute un événement explicite au buffer éphémère.
// Utilisé en interne par les autres sous-systèmes (confirmation de suppression, etc.).
func EmitNotificationHandler(notificationService *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmitNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Type, title, and message are required"})
			return
		}

		if !models.IsValidNotificationType(req.Type) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown notification type: " + req.Type})
			return
		}

		notification := notificationService.Emit(req.Type, req.Title, req.Message, req.LinkCode, req.Data)

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"notification": notification,
		})
	}
}

// ListEmittedHandler retourne les événements émis encore vivants dans le buffer,
// filtrés par le paramètre 'since' s'il est fourni.
func ListEmittedHandler(notificationService *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var since time.Time // Zéro : tout le buffer
		if raw := c.Query("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err == nil {
				since = parsed
			}
		}

		emitted, total := notificationService.ListEmittedSince(since)

		c.JSON(http.StatusOK, gin.H{
			"notifications": emitted,
			"count":         len(emitted),
			"total":         total,
		})
	}
}
