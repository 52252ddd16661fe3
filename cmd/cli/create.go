package cli

import (
	"fmt"
	"log"
	"time"

	cmd2 "github.com/Jaswanthnimmalla/TinyLink/cmd"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
	"github.com/Jaswanthnimmalla/TinyLink/internal/services"
	"github.com/glebarez/sqlite" // Driver SQLite pour GORM
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Flags de la commande 'create'
var (
	urlFlag       string
	codeFlag      string
	passwordFlag  string
	expiresInFlag int // Durée de vie en minutes (0 = pas d'expiration)
	maxClicksFlag int // Plafond de clics (0 = pas de plafond)
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée une URL courte à partir d'une URL longue.",
	Long: `Cette commande raccourcit une URL fournie et affiche le code court généré.
Un code personnalisé, un mot de passe, une durée de vie et un plafond de clics
peuvent être fournis en option.

Exemple:
  tinylink create --url="https://www.google.com/search?q=go+lang" --max-clicks=100`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := cmd2.Cfg
		if cfg == nil {
			log.Fatalf("FATAL: La configuration n'a pas été chargée correctement.")
		}

		// Initialiser la connexion à la base de données SQLite.
		// TranslateError : une collision de code remonte en gorm.ErrDuplicatedKey.
		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("FATAL: Impossible de se connecter à la base de données: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("FATAL: Échec de l'obtention de la base de données SQL sous-jacente: %v", err)
		}

		// S'assurer que la connexion est fermée à la fin de l'exécution de la commande
		defer func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Attention: Erreur lors de la fermeture de la connexion: %v", err)
			}
		}()

		linkRepo := repository.NewLinkRepository(db)
		linkService := services.NewLinkService(linkRepo)

		opts := services.CreateLinkOptions{
			URL:        urlFlag,
			CustomCode: codeFlag,
			Password:   passwordFlag,
		}
		if expiresInFlag > 0 {
			expiresAt := time.Now().Add(time.Duration(expiresInFlag) * time.Minute)
			opts.ExpiresAt = &expiresAt
		}
		if maxClicksFlag > 0 {
			opts.MaxClicks = &maxClicksFlag
		}

		// Appeler le LinkService pour créer le lien court (la validation de
		// l'URL et du code personnalisé est faite par le service).
		link, err := linkService.CreateLink(opts)
		if err != nil {
			log.Fatalf("FATAL: Échec de la création du lien court: %v", err)
		}

		fullShortURL := fmt.Sprintf("%s/%s", cfg.Server.BaseURL, link.Code)
		fmt.Printf("URL courte créée avec succès:\n")
		fmt.Printf("Code: %s\n", link.Code)
		fmt.Printf("URL complète: %s\n", fullShortURL)
		if link.ExpiresAt != nil {
			fmt.Printf("Expire le: %s\n", link.ExpiresAt.Format(time.RFC3339))
		}
		if link.MaxClicks != nil {
			fmt.Printf("Plafond de clics: %d\n", *link.MaxClicks)
		}
		if link.IsPasswordProtected() {
			fmt.Printf("Lien protégé par mot de passe\n")
		}
	},
}

// init() s'exécute automatiquement lors de l'importation du package.
// Il est utilisé pour définir les flags que cette commande accepte.
func init() {
	CreateCmd.Flags().StringVarP(&urlFlag, "url", "u", "", "L'URL à raccourcir")
	CreateCmd.Flags().StringVarP(&codeFlag, "code", "c", "", "Code personnalisé (6 à 8 caractères alphanumériques)")
	CreateCmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "Mot de passe protégeant le lien")
	CreateCmd.Flags().IntVar(&expiresInFlag, "expires-in", 0, "Durée de vie du lien en minutes")
	CreateCmd.Flags().IntVar(&maxClicksFlag, "max-clicks", 0, "Nombre maximum de clics avant désactivation")

	// Marquer le flag comme requis
	CreateCmd.MarkFlagRequired("url")

	// Ajouter la commande à RootCmd
	cmd2.RootCmd.AddCommand(CreateCmd)
}
