package middleware

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// IPRateLimiter limite le nombre de requêtes qu'une même IP peut effectuer
// dans un intervalle de temps donné. Il protège les routes de résolution et
// de vérification de mot de passe contre les abus (force brute incluse).
type IPRateLimiter struct {
	ips        map[string]*ipLimitInfo // Map des IPs avec leurs informations de limitation
	mu         sync.Mutex              // Mutex pour protéger l'accès concurrent à la map
	maxRequest int                     // Nombre maximum de requêtes autorisées
	window     time.Duration           // Fenêtre de temps pour le rate limiting
}

// ipLimitInfo contient les informations de limitation pour une IP spécifique.
type ipLimitInfo struct {
	count      int       // Nombre de requêtes effectuées dans la fenêtre actuelle
	resetTime  time.Time // Moment où le compteur sera réinitialisé
	lastAccess time.Time // Dernière fois que cette IP a fait une requête
}

// NewIPRateLimiter crée une nouvelle instance de rate limiter.
// maxRequest: nombre maximum de requêtes autorisées par IP
// windowMinutes: durée de la fenêtre de temps en minutes
func NewIPRateLimiter(maxRequest int, windowMinutes int) *IPRateLimiter {
	limiter := &IPRateLimiter{
		ips:        make(map[string]*ipLimitInfo),
		maxRequest: maxRequest,
		window:     time.Duration(windowMinutes) * time.Minute,
	}

	// Lancer une goroutine pour nettoyer périodiquement les anciennes entrées.
	// Cela évite que la map grandisse indéfiniment.
	go limiter.cleanupOldEntries()

	return limiter
}

// cleanupOldEntries supprime périodiquement les IPs inactives depuis plus de
// deux fenêtres de temps. S'exécute dans une goroutine séparée.
func (rl *IPRateLimiter) cleanupOldEntries() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, info := range rl.ips {
			if now.Sub(info.lastAccess) > rl.window*2 {
				delete(rl.ips, ip)
			}
		}
		tracked := len(rl.ips)
		rl.mu.Unlock()
		log.Printf("[RATE LIMITER] Nettoyage effectué. Nombre d'IPs suivies: %d", tracked)
	}
}

// allow vérifie si une IP est autorisée à faire une requête, met à jour son
// compteur et retourne le nombre de requêtes restantes ainsi que le moment de
// réinitialisation de la fenêtre.
func (rl *IPRateLimiter) allow(ip string) (allowed bool, remaining int, resetTime time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	info, exists := rl.ips[ip]
	if !exists || now.After(info.resetTime) {
		// Première requête de cette IP, ou fenêtre expirée : on repart de zéro
		rl.ips[ip] = &ipLimitInfo{
			count:      1,
			resetTime:  now.Add(rl.window),
			lastAccess: now,
		}
		return true, rl.maxRequest - 1, now.Add(rl.window)
	}

	info.lastAccess = now

	if info.count >= rl.maxRequest {
		log.Printf("[RATE LIMITER] IP %s a dépassé la limite (%d requêtes en %v)", ip, rl.maxRequest, rl.window)
		return false, 0, info.resetTime
	}

	info.count++
	return true, rl.maxRequest - info.count, info.resetTime
}

// RateLimitMiddleware crée un middleware Gin pour le rate limiting par IP.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, remaining, resetTime := limiter.allow(ip)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", resetTime.Format(time.RFC3339))

		if !allowed {
			secondsUntilReset := int(time.Until(resetTime).Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", secondsUntilReset))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"retry_after": secondsUntilReset,
				"reset_at":    resetTime.Format(time.RFC3339),
			})
			c.Abort() // Arrêter le traitement de la requête
			return
		}

		c.Next()
	}
}
