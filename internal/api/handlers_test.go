package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Jaswanthnimmalla/TinyLink/internal/config"
	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/notifications"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
	"github.com/Jaswanthnimmalla/TinyLink/internal/services"
)

// testEnv regroupe le routeur et les dépendances montées sur une base en mémoire.
type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	linkSvc   *services.LinkService
	notifSvc  *services.NotificationService
	clickChan chan models.ClickEvent
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("ouverture de la base en mémoire: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("accès à la base SQL sous-jacente: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Link{}, &models.Click{}); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	linkSvc := services.NewLinkService(linkRepo)
	analyticsSvc := services.NewAnalyticsService(linkRepo, clickRepo)
	store := notifications.NewNotificationStore(5 * time.Minute)
	notifSvc := services.NewNotificationService(store, clickRepo, 20)

	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:8080"

	clickChan := make(chan models.ClickEvent, 16)

	router := gin.New()
	SetupRoutes(router, linkSvc, analyticsSvc, notifSvc, clickChan, cfg)

	return &testEnv{router: router, db: db, linkSvc: linkSvc, notifSvc: notifSvc, clickChan: clickChan}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("sérialisation du corps: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200", rec.Code)
	}
}

func TestCreateLinkValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{"URL manquante", map[string]any{}, http.StatusBadRequest},
		{"schéma interdit", map[string]any{"url": "ftp://example.com"}, http.StatusBadRequest},
		{"code personnalisé trop court", map[string]any{"url": "https://example.com", "customCode": "ab"}, http.StatusBadRequest},
		{"plafond de clics négatif", map[string]any{"url": "https://example.com", "maxClicks": -1}, http.StatusBadRequest},
		{"création valide", map[string]any{"url": "https://example.com", "customCode": "abc123"}, http.StatusCreated},
		{"conflit sur code personnalisé", map[string]any{"url": "https://example.org", "customCode": "abc123"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/links", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("statut = %d, attendu %d (corps: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCreateLinkWithExpirationMinutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/links", map[string]any{
		"url":               "https://example.com",
		"customCode":        "abc123",
		"expirationMinutes": 30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("statut = %d, attendu 201 (corps: %s)", rec.Code, rec.Body.String())
	}

	var stored models.Link
	env.db.Where("code = ?", "abc123").First(&stored)
	if stored.ExpiresAt == nil {
		t.Fatal("expiresAt doit être calculé depuis expirationMinutes")
	}
	remaining := time.Until(*stored.ExpiresAt)
	if remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Errorf("expiration à %v du présent, attendu environ 30 minutes", remaining)
	}
}

func TestRedirectAllowed(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com/dest", CustomCode: "abc123"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/abc123", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("statut = %d, attendu 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/dest" {
		t.Errorf("Location = %q, attendu la destination", loc)
	}

	// L'événement de clic doit avoir été mis en file sans bloquer
	select {
	case event := <-env.clickChan:
		if event.LinkID == 0 {
			t.Error("ClickEvent sans LinkID")
		}
	default:
		t.Error("aucun ClickEvent en file après une résolution autorisée")
	}

	// Et le compteur incrémenté avant la réponse
	var stored models.Link
	env.db.Where("code = ?", "abc123").First(&stored)
	if stored.Clicks != 1 {
		t.Errorf("compteur = %d, attendu 1", stored.Clicks)
	}
}

func TestRedirectNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nothere", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("statut = %d, attendu 404", rec.Code)
	}
}

func TestRedirectUnavailableByMaxClicks(t *testing.T) {
	env := newTestEnv(t)

	maxClicks := 3
	link, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123", MaxClicks: &maxClicks})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	env.db.Model(&models.Link{}).Where("id = ?", link.ID).UpdateColumn("clicks", 3)

	rec := env.do(t, http.MethodGet, "/abc123", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("statut = %d, attendu 302", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/expired?") || !strings.Contains(loc, "reason=clicks") ||
		!strings.Contains(loc, "max=3") || !strings.Contains(loc, "code=abc123") {
		t.Errorf("Location = %q, attendu /expired avec reason=clicks, code et max", loc)
	}

	// Aucun événement de clic pour une résolution refusée
	select {
	case <-env.clickChan:
		t.Error("aucun ClickEvent attendu pour une résolution refusée")
	default:
	}
}

func TestRedirectExpiredByDate(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().Add(-time.Hour)
	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123", ExpiresAt: &past}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/abc123", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("statut = %d, attendu 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "reason=date") {
		t.Errorf("Location = %q, attendu reason=date", loc)
	}
}

func TestRedirectPasswordProtected(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123", Password: "secret42"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/abc123", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("statut = %d, attendu 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/code/abc123" {
		t.Errorf("Location = %q, attendu la page de mot de passe", loc)
	}
}

func TestVerifyPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com/dest", CustomCode: "abc123", Password: "secret42"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "plain12"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	tests := []struct {
		name       string
		path       string
		body       map[string]any
		wantStatus int
	}{
		{"mot de passe manquant", "/verify/abc123", map[string]any{}, http.StatusBadRequest},
		{"code inconnu", "/verify/nothere", map[string]any{"password": "x"}, http.StatusNotFound},
		{"lien non protégé", "/verify/plain12", map[string]any{"password": "x"}, http.StatusBadRequest},
		{"mauvais mot de passe", "/verify/abc123", map[string]any{"password": "wrong"}, http.StatusUnauthorized},
		{"bon mot de passe", "/verify/abc123", map[string]any{"password": "secret42"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("statut = %d, attendu %d (corps: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	// La réponse du succès porte l'URL de destination
	rec := env.do(t, http.MethodPost, "/verify/abc123", map[string]any{"password": "secret42"})
	var resp struct {
		Success     bool   `json:"success"`
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if !resp.Success || resp.RedirectURL != "https://example.com/dest" {
		t.Errorf("réponse inattendue: %+v", resp)
	}
}

func TestNotificationsFeed(t *testing.T) {
	env := newTestEnv(t)

	link, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123"})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	clickRepo := repository.NewClickRepository(env.db)
	clickRepo.CreateClick(&models.Click{
		LinkID: link.ID, Country: "France", City: "Paris",
		Device: "Mobile", Browser: "Safari", ClickedAt: time.Now(),
	})
	env.notifSvc.Emit(models.NotificationTypeInfo, "Hello", "world", "", nil)

	rec := env.do(t, http.MethodGet, "/notifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200", rec.Code)
	}

	var resp struct {
		Notifications []models.Notification `json:"notifications"`
		Count         int                   `json:"count"`
		Since         string                `json:"since"`
		Breakdown     struct {
			Emitted int `json:"emitted"`
			Clicks  int `json:"clicks"`
		} `json:"breakdown"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if resp.Count != 2 || resp.Breakdown.Emitted != 1 || resp.Breakdown.Clicks != 1 {
		t.Errorf("réponse inattendue: count=%d breakdown=%+v", resp.Count, resp.Breakdown)
	}
	if resp.Since == "" {
		t.Error("le champ 'since' doit refléter la fenêtre utilisée")
	}
}

func TestEmitEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Champs requis manquants
	rec := env.do(t, http.MethodPost, "/notifications/emit", map[string]any{"type": "info"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("statut = %d, attendu 400", rec.Code)
	}

	// Type inconnu
	rec = env.do(t, http.MethodPost, "/notifications/emit", map[string]any{
		"type": "bogus", "title": "t", "message": "m",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("statut = %d, attendu 400 pour un type inconnu", rec.Code)
	}

	// Émission valide
	rec = env.do(t, http.MethodPost, "/notifications/emit", map[string]any{
		"type": "warning", "title": "Link deleted", "message": "...", "linkCode": "abc123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200 (corps: %s)", rec.Code, rec.Body.String())
	}

	// Relecture du buffer
	rec = env.do(t, http.MethodGet, "/notifications/emit", nil)
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
		Count         int                   `json:"count"`
		Total         int                   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if resp.Count != 1 || resp.Total != 1 {
		t.Errorf("attendu count=1 total=1, obtenu count=%d total=%d", resp.Count, resp.Total)
	}
	if resp.Notifications[0].Type != models.NotificationTypeWarning {
		t.Errorf("type = %q, attendu warning", resp.Notifications[0].Type)
	}
}

func TestDeleteLinkEmitsNotification(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	rec := env.do(t, http.MethodDelete, "/api/v1/links/abc123", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200", rec.Code)
	}

	emitted, _ := env.notifSvc.ListEmittedSince(time.Time{})
	if len(emitted) != 1 || emitted[0].Type != models.NotificationTypeWarning || emitted[0].LinkCode != "abc123" {
		t.Errorf("notification de suppression attendue, obtenu %+v", emitted)
	}

	// Suppression d'un code inconnu
	rec = env.do(t, http.MethodDelete, "/api/v1/links/abc123", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("statut = %d, attendu 404", rec.Code)
	}
}

func TestCheckCodeAvailabilityEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	// Paramètre manquant
	rec := env.do(t, http.MethodGet, "/api/v1/links/check", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("statut = %d, attendu 400 sans paramètre code", rec.Code)
	}

	var resp struct {
		Available bool   `json:"available"`
		Code      string `json:"code"`
	}

	// Code déjà pris
	rec = env.do(t, http.MethodGet, "/api/v1/links/check?code=abc123", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if resp.Available || resp.Code != "abc123" {
		t.Errorf("attendu available=false pour un code pris, obtenu %+v", resp)
	}

	// Code libre
	rec = env.do(t, http.MethodGet, "/api/v1/links/check?code=xyz789", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if !resp.Available || resp.Code != "xyz789" {
		t.Errorf("attendu available=true pour un code libre, obtenu %+v", resp)
	}
}

func TestGetLinkAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	link, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123"})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	clickRepo := repository.NewClickRepository(env.db)
	clickRepo.CreateClick(&models.Click{
		LinkID: link.ID, Country: "France", CountryCode: "FR", City: "Paris",
		Device: "Mobile", Browser: "Safari", OS: "iOS 17.2", Referrer: "Direct",
		ClickedAt: time.Now(),
	})

	rec := env.do(t, http.MethodGet, "/api/v1/links/abc123/analytics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200 (corps: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Link struct {
			Code        string `json:"code"`
			HasPassword bool   `json:"hasPassword"`
		} `json:"link"`
		Analytics struct {
			TotalTrackedClicks int `json:"totalTrackedClicks"`
			Geographic         struct {
				Countries []struct {
					Country    string `json:"country"`
					Clicks     int    `json:"clicks"`
					Percentage string `json:"percentage"`
				} `json:"countries"`
			} `json:"geographic"`
			Devices []struct {
				Device string `json:"device"`
				Clicks int    `json:"clicks"`
			} `json:"devices"`
			TimeData struct {
				Hourly []struct {
					Hour   int `json:"hour"`
					Clicks int `json:"clicks"`
				} `json:"hourly"`
			} `json:"timeData"`
			RecentClicks []struct {
				City string `json:"city"`
			} `json:"recentClicks"`
		} `json:"analytics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if resp.Link.Code != "abc123" {
		t.Errorf("link.code = %q, attendu abc123", resp.Link.Code)
	}
	if resp.Analytics.TotalTrackedClicks != 1 {
		t.Errorf("totalTrackedClicks = %d, attendu 1", resp.Analytics.TotalTrackedClicks)
	}
	if len(resp.Analytics.Geographic.Countries) != 1 || resp.Analytics.Geographic.Countries[0].Country != "France" ||
		resp.Analytics.Geographic.Countries[0].Percentage != "100.0" {
		t.Errorf("répartition géographique inattendue: %+v", resp.Analytics.Geographic.Countries)
	}
	if len(resp.Analytics.Devices) != 1 || resp.Analytics.Devices[0].Device != "Mobile" {
		t.Errorf("répartition par appareil inattendue: %+v", resp.Analytics.Devices)
	}
	if len(resp.Analytics.TimeData.Hourly) != 24 {
		t.Errorf("heatmap horaire: %d créneaux, attendu 24", len(resp.Analytics.TimeData.Hourly))
	}
	if len(resp.Analytics.RecentClicks) != 1 || resp.Analytics.RecentClicks[0].City != "Paris" {
		t.Errorf("clics récents inattendus: %+v", resp.Analytics.RecentClicks)
	}

	// Code inconnu
	rec = env.do(t, http.MethodGet, "/api/v1/links/nothere/analytics", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("statut = %d, attendu 404", rec.Code)
	}
}

func TestGetLinkStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.linkSvc.CreateLink(services.CreateLinkOptions{URL: "https://example.com", CustomCode: "abc123"}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/links/abc123/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statut = %d, attendu 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("décodage de la réponse: %v", err)
	}
	if resp["code"] != "abc123" {
		t.Errorf("code = %v, attendu abc123", resp["code"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/links/nothere/stats", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("statut = %d, attendu 404", rec.Code)
	}
}
