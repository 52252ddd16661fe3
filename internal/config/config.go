package config

import (
	"fmt"
	"log" // Pour logger les informations ou erreurs de chargement de config

	"github.com/spf13/viper" // La bibliothèque pour la gestion de configuration
)

// Config est la structure principale qui mappe l'intégralité de la configuration de l'application.
// Les tags `mapstructure` sont utilisés par Viper pour mapper les clés du fichier de config
// (ou des variables d'environnement) aux champs de la structure Go.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
	Geolocation   GeolocationConfig   `mapstructure:"geolocation"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	RateLimiter   RateLimiterConfig   `mapstructure:"rate_limiter"`
}

// ServerConfig contient la configuration du serveur web Gin.
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig contient la configuration de la base de données.
type DatabaseConfig struct {
	Name string `mapstructure:"name"`
}

// AnalyticsConfig contient la configuration des analytics asynchrones
// (taille du channel des ClickEvents et nombre de workers qui le consomment).
type AnalyticsConfig struct {
	BufferSize  int `mapstructure:"buffer_size"`
	WorkerCount int `mapstructure:"worker_count"`
}

// GeolocationConfig contient la configuration du client de géolocalisation IP.
// Endpoint est le préfixe de l'API (l'adresse IP et /json/ sont ajoutés à la suite).
type GeolocationConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// NotificationsConfig contient la configuration du flux de notifications.
type NotificationsConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"` // Durée de vie des événements émis dans le buffer
	PageSize   int `mapstructure:"page_size"`   // Nombre maximum de notifications dérivées des clics par requête
}

// MonitorConfig contient la configuration du moniteur de liens
// (émission des notifications "expiring" pour les liens proches de l'expiration).
type MonitorConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// RateLimiterConfig contient la configuration du rate limiting.
type RateLimiterConfig struct {
	Enabled       bool `mapstructure:"enabled"`        // Activer ou désactiver le rate limiting
	MaxRequests   int  `mapstructure:"max_requests"`   // Nombre maximum de requêtes par IP
	WindowMinutes int  `mapstructure:"window_minutes"` // Fenêtre de temps en minutes
}

// LoadConfig charge la configuration de l'application en utilisant Viper.
// Elle recherche un fichier 'config.yaml' dans le dossier 'configs/'.
// Elle définit également des valeurs par défaut si le fichier de config est absent ou incomplet.
func LoadConfig() (*Config, error) {
	// Spécifie le chemin où Viper doit chercher les fichiers de config.
	// on cherche dans le dossier 'configs' relatif au répertoire d'exécution.
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Spécifie le nom du fichier de config (sans l'extension).
	viper.SetConfigName("config")

	// Spécifie le type de fichier de config.
	viper.SetConfigType("yaml")

	// Définir les valeurs par défaut pour toutes les options de configuration.
	// Ces valeurs seront utilisées si les clés correspondantes ne sont pas trouvées dans le fichier de config
	// ou si le fichier n'existe pas.
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.name", "tinylink.db")
	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.worker_count", 5)
	viper.SetDefault("geolocation.endpoint", "https://ipapi.co")
	viper.SetDefault("geolocation.timeout_seconds", 3)
	viper.SetDefault("notifications.ttl_minutes", 5)
	viper.SetDefault("notifications.page_size", 20)
	viper.SetDefault("monitor.interval_minutes", 5)
	viper.SetDefault("rate_limiter.enabled", true)
	viper.SetDefault("rate_limiter.max_requests", 100)
	viper.SetDefault("rate_limiter.window_minutes", 1)

	// Lire le fichier de configuration.
	if err := viper.ReadInConfig(); err != nil {
		// Si le fichier n'est pas trouvé, on continue avec les valeurs par défaut
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Fichier de configuration non trouvé. Utilisation des valeurs par défaut.")
		} else {
			// Autre erreur de lecture
			return nil, fmt.Errorf("erreur lors de la lecture du fichier de configuration: %w", err)
		}
	} else {
		log.Printf("Fichier de configuration chargé: %s", viper.ConfigFileUsed())
	}

	// Démapper (unmarshal) la configuration lue (ou les valeurs par défaut) dans la structure Config.
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("erreur lors du démappage de la configuration: %w", err)
	}

	log.Printf("Configuration loaded: Server Port=%d, DB Name=%s, Analytics Buffer=%d, Workers=%d",
		cfg.Server.Port, cfg.Database.Name, cfg.Analytics.BufferSize, cfg.Analytics.WorkerCount)

	return &cfg, nil // Retourne la configuration chargée
}
