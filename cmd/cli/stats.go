package cli

import (
	"errors"
	"fmt"
	"log"
	"time"

	cmd2 "github.com/Jaswanthnimmalla/TinyLink/cmd"
	apperrors "github.com/Jaswanthnimmalla/TinyLink/internal/errors"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
	"github.com/Jaswanthnimmalla/TinyLink/internal/services"
	"github.com/glebarez/sqlite" // Driver SQLite pour GORM
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// statsCodeFlag stockera la valeur du flag --code
var statsCodeFlag string

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Affiche les statistiques (nombre de clics) pour un lien court.",
	Long: `Cette commande permet de récupérer et d'afficher le compteur de clics
et le nombre d'entrées du registre détaillé pour une URL courte spécifique.

Exemple:
  tinylink stats --code="xyz123"`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := cmd2.Cfg
		if cfg == nil {
			log.Fatalf("FATAL: La configuration n'a pas été chargée correctement.")
		}

		// Initialiser la connexion à la BDD.
		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("FATAL: Impossible de se connecter à la base de données: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("FATAL: Échec de l'obtention de la base de données SQL sous-jacente: %v", err)
		}

		// S'assurer que la connexion est fermée à la fin de l'exécution de la commande grâce à defer
		defer func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Attention: Erreur lors de la fermeture de la connexion: %v", err)
			}
		}()

		linkRepo := repository.NewLinkRepository(db)
		linkService := services.NewLinkService(linkRepo)

		// Appeler GetLinkStats pour récupérer le lien et ses statistiques.
		link, totalClicks, err := linkService.GetLinkStats(statsCodeFlag)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				log.Fatalf("FATAL: Code court '%s' introuvable", statsCodeFlag)
			}
			log.Fatalf("FATAL: Erreur lors de la récupération des statistiques: %v", err)
		}

		fmt.Printf("Statistiques pour le code court: %s\n", link.Code)
		fmt.Printf("URL de destination: %s\n", link.URL)
		fmt.Printf("Compteur de clics: %d\n", link.Clicks)
		fmt.Printf("Clics enregistrés (registre détaillé): %d\n", totalClicks)
		fmt.Printf("Actif: %t\n", link.IsActive)
		if link.LastClickedAt != nil {
			fmt.Printf("Dernier clic: %s\n", link.LastClickedAt.Format(time.RFC3339))
		}
		if link.ExpiresAt != nil {
			fmt.Printf("Expire le: %s\n", link.ExpiresAt.Format(time.RFC3339))
		}
		if link.MaxClicks != nil {
			fmt.Printf("Plafond de clics: %d\n", *link.MaxClicks)
		}
	},
}

// init() s'exécute automatiquement lors de l'importation du package.
// Il est utilisé pour définir les flags que cette commande accepte.
func init() {
	// Définir le flag --code pour la commande stats.
	StatsCmd.Flags().StringVarP(&statsCodeFlag, "code", "c", "", "Le code court dont on veut les statistiques")

	// Marquer le flag comme requis
	StatsCmd.MarkFlagRequired("code")

	// Ajouter la commande à RootCmd
	cmd2.RootCmd.AddCommand(StatsCmd)
}
