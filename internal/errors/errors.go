package errors

import "fmt"

// Raisons d'indisponibilité exposées au front-end via la page /expired.
const (
	ReasonInactive = "inactive"
	ReasonDate     = "date"
	ReasonClicks   = "clicks"
	ReasonUnknown  = "unknown"
)

// ErrLinkNotFound est retournée quand un lien n'existe pas dans la base de données.
type ErrLinkNotFound struct {
	Code string
}

func (e *ErrLinkNotFound) Error() string {
	return fmt.Sprintf("lien avec le code '%s' non trouvé", e.Code)
}

// ErrLinkUnavailable est retournée par le Gate quand un lien existe mais ne peut
// plus être résolu (désactivé, expiré par date ou plafond de clics atteint).
// Reason est l'une des constantes Reason* ci-dessus; MaxClicks n'est renseigné
// que pour la raison "clicks".
type ErrLinkUnavailable struct {
	Code      string
	Reason    string
	MaxClicks int
}

func (e *ErrLinkUnavailable) Error() string {
	return fmt.Sprintf("lien '%s' indisponible (raison: %s)", e.Code, e.Reason)
}

// ErrCodeGenerationFailed est retournée quand la génération d'un code unique échoue.
type ErrCodeGenerationFailed struct {
	Attempts int
}

func (e *ErrCodeGenerationFailed) Error() string {
	return fmt.Sprintf("impossible de générer un code unique après %d tentatives", e.Attempts)
}

// ErrCodeConflict est retournée quand un code personnalisé est déjà pris.
// L'appelant doit choisir un autre code (pas de retry pour les codes personnalisés).
type ErrCodeConflict struct {
	Code string
}

func (e *ErrCodeConflict) Error() string {
	return fmt.Sprintf("le code '%s' existe déjà", e.Code)
}

// ErrInvalidURL est retournée quand une URL fournie est invalide.
type ErrInvalidURL struct {
	URL string
}

func (e *ErrInvalidURL) Error() string {
	return fmt.Sprintf("URL invalide: %s", e.URL)
}

// ErrInvalidCode est retournée quand un code personnalisé ne respecte pas
// le format attendu ^[A-Za-z0-9]{6,8}$.
type ErrInvalidCode struct {
	Code string
}

func (e *ErrInvalidCode) Error() string {
	return fmt.Sprintf("code invalide '%s': 6 à 8 caractères alphanumériques attendus", e.Code)
}

// ErrPasswordRequired signale que le lien est protégé par mot de passe.
// Ce n'est pas une erreur à proprement parler : la résolution doit repasser
// par l'étape de vérification (POST /verify/:code).
type ErrPasswordRequired struct {
	Code string
}

func (e *ErrPasswordRequired) Error() string {
	return fmt.Sprintf("le lien '%s' requiert un mot de passe", e.Code)
}

// ErrNotPasswordProtected est retournée quand on tente de vérifier un mot de
// passe sur un lien qui n'en a pas.
type ErrNotPasswordProtected struct {
	Code string
}

func (e *ErrNotPasswordProtected) Error() string {
	return fmt.Sprintf("le lien '%s' n'est pas protégé par mot de passe", e.Code)
}

// ErrInvalidPassword est retournée quand le mot de passe fourni ne correspond pas.
// Aucun compteur n'est modifié dans ce cas : l'utilisateur peut réessayer.
type ErrInvalidPassword struct {
	Code string
}

func (e *ErrInvalidPassword) Error() string {
	return fmt.Sprintf("mot de passe invalide pour le lien '%s'", e.Code)
}
