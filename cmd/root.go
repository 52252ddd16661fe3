package cmd

import (
	"log"

	"github.com/Jaswanthnimmalla/TinyLink/internal/config"
	"github.com/spf13/cobra"
)

// Cfg contient la configuration chargée au démarrage, partagée par toutes les
// sous-commandes. Elle est remplie par le PersistentPreRun de la commande racine.
var Cfg *config.Config

// RootCmd est la commande racine de l'application.
// Toutes les sous-commandes (create, stats, migrate, run-server) s'y rattachent
// via leurs init() respectifs.
var RootCmd = &cobra.Command{
	Use:   "tinylink",
	Short: "TinyLink est un service de raccourcissement d'URLs avec analytics et notifications.",
	Long: `TinyLink est un service de raccourcissement d'URLs.
Il gère la résolution des codes courts (expiration, plafond de clics, mot de passe),
la capture asynchrone des clics enrichis (appareil, navigateur, géolocalisation)
et un flux de notifications en quasi temps-réel consommé par polling.`,
	// Charger la configuration avant l'exécution de n'importe quelle sous-commande
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("FATAL: Impossible de charger la configuration: %v", err)
		}
		Cfg = cfg
	},
}

// Execute lance la commande racine de Cobra. C'est le point d'entrée appelé par main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("FATAL: Erreur lors de l'exécution de la commande: %v", err)
	}
}
