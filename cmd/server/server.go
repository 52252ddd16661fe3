package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmd2 "github.com/Jaswanthnimmalla/TinyLink/cmd"
	"github.com/Jaswanthnimmalla/TinyLink/internal/analytics"
	"github.com/Jaswanthnimmalla/TinyLink/internal/api"
	"github.com/Jaswanthnimmalla/TinyLink/internal/middleware"
	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/monitor"
	"github.com/Jaswanthnimmalla/TinyLink/internal/notifications"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
	"github.com/Jaswanthnimmalla/TinyLink/internal/services"
	"github.com/Jaswanthnimmalla/TinyLink/internal/workers"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite" // Driver SQLite pour GORM
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RunServerCmd représente la commande 'run-server' qui démarre le serveur HTTP,
// les workers d'analytics et le moniteur de liens.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur HTTP de TinyLink.",
	Long: `Cette commande démarre le serveur Gin qui gère la résolution des liens courts,
la vérification des mots de passe, le flux de notifications et l'API de gestion.
Elle démarre également le pool de workers qui enregistre les clics enrichis
et le moniteur qui signale les liens proches de l'expiration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := cmd2.Cfg
		if cfg == nil {
			log.Fatalf("FATAL: La configuration n'a pas été chargée correctement.")
		}

		// Initialiser la connexion à la base de données SQLite.
		// TranslateError permet de recevoir gorm.ErrDuplicatedKey sur une
		// violation de contrainte d'unicité, au lieu de l'erreur brute du driver.
		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("FATAL: Impossible de se connecter à la base de données: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("FATAL: Échec de l'obtention de la base de données SQL sous-jacente: %v", err)
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Attention: Erreur lors de la fermeture de la connexion: %v", err)
			}
		}()

		// Initialiser les repositories et services
		linkRepo := repository.NewLinkRepository(db)
		clickRepo := repository.NewClickRepository(db)
		linkService := services.NewLinkService(linkRepo)
		analyticsService := services.NewAnalyticsService(linkRepo, clickRepo)

		// Le buffer de notifications est possédé ici (durée de vie = celle du
		// processus) et injecté dans les handlers qui en ont besoin.
		notificationStore := notifications.NewNotificationStore(time.Duration(cfg.Notifications.TTLMinutes) * time.Minute)
		notificationService := services.NewNotificationService(notificationStore, clickRepo, cfg.Notifications.PageSize)

		// Créer le channel bufferisé des ClickEvents et démarrer les workers.
		// La taille du buffer et le nombre de workers viennent de la configuration.
		clickEventsChan := make(chan models.ClickEvent, cfg.Analytics.BufferSize)
		geoClient := analytics.NewGeoClient(cfg.Geolocation.Endpoint, time.Duration(cfg.Geolocation.TimeoutSeconds)*time.Second)
		workers.StartClickWorkers(cfg.Analytics.WorkerCount, clickEventsChan, clickRepo, geoClient)

		// Démarrer le moniteur de liens proches de l'expiration
		linkMonitor := monitor.NewLinkMonitor(linkRepo, notificationService, time.Duration(cfg.Monitor.IntervalMinutes)*time.Minute)
		linkMonitor.Start()

		// Configurer le routeur Gin
		router := gin.Default()
		if cfg.RateLimiter.Enabled {
			limiter := middleware.NewIPRateLimiter(cfg.RateLimiter.MaxRequests, cfg.RateLimiter.WindowMinutes)
			router.Use(middleware.RateLimitMiddleware(limiter))
		}
		api.SetupRoutes(router, linkService, analyticsService, notificationService, clickEventsChan, cfg)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		// Démarrer le serveur dans une goroutine pour pouvoir attendre les signaux d'arrêt
		go func() {
			log.Printf("Serveur démarré sur le port %d (base URL: %s)", cfg.Server.Port, cfg.Server.BaseURL)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("FATAL: Erreur du serveur HTTP: %v", err)
			}
		}()

		// Attendre un signal d'arrêt (Ctrl+C ou SIGTERM)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Signal d'arrêt reçu, arrêt du serveur...")

		// Arrêt propre : on cesse d'accepter des requêtes, puis on ferme le
		// channel des ClickEvents pour laisser les workers finir leur file.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Attention: Arrêt forcé du serveur: %v", err)
		}
		close(clickEventsChan)

		log.Println("Serveur arrêté.")
	},
}

func init() {
	// Ajouter la commande run-server à RootCmd
	cmd2.RootCmd.AddCommand(RunServerCmd)
}
