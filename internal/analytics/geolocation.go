package analytics

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// GeoLocation contient le résultat d'une résolution IP vers géolocalisation.
type GeoLocation struct {
	Country     string
	CountryCode string
	City        string
	Region      string
}

// geoAPIResponse mappe la réponse JSON de l'API de géolocalisation (format ipapi.co).
// Error et Reason signalent une erreur applicative ou un rate limit malgré un statut 200.
type geoAPIResponse struct {
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// GeoClient interroge une API HTTP de géolocalisation IP.
// Le timeout du client HTTP borne chaque appel : en cas de dépassement,
// l'enrichissement se dégrade en champs "Unknown" côté appelant.
type GeoClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGeoClient crée un client de géolocalisation avec un timeout borné.
func NewGeoClient(endpoint string, timeout time.Duration) *GeoClient {
	return &GeoClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// isPrivateIP indique si l'adresse est locale ou privée (loopback, RFC 1918...).
// Ces adresses ne doivent jamais déclencher d'appel réseau.
func isPrivateIP(ipAddress string) bool {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		// Adresse illisible : on la traite comme locale plutôt que d'appeler l'API avec
		return true
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// Lookup résout une adresse IP en géolocalisation.
// Les adresses privées/loopback court-circuitent vers un résultat fixe
// "Local/Development" sans appel réseau. Toute erreur (réseau, timeout,
// rate limit) est retournée à l'appelant qui se rabat sur des champs "Unknown".
func (g *GeoClient) Lookup(ipAddress string) (*GeoLocation, error) {
	if isPrivateIP(ipAddress) {
		return &GeoLocation{
			Country:     "Local",
			CountryCode: "LOCAL",
			City:        "Localhost",
			Region:      "Development",
		}, nil
	}

	url := fmt.Sprintf("%s/%s/json/", g.endpoint, ipAddress)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("erreur de construction de la requête de géolocalisation: %w", err)
	}
	req.Header.Set("User-Agent", "TinyLink-Analytics/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erreur d'appel de l'API de géolocalisation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("l'API de géolocalisation a répondu avec le statut %d", resp.StatusCode)
	}

	var data geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("erreur de décodage de la réponse de géolocalisation: %w", err)
	}

	// L'API signale les rate limits avec un statut 200 et un champ 'error'/'reason'
	if data.Error || data.Reason != "" {
		return nil, fmt.Errorf("erreur de géolocalisation: %s", data.Reason)
	}

	loc := &GeoLocation{
		Country:     data.CountryName,
		CountryCode: data.CountryCode,
		City:        data.City,
		Region:      data.Region,
	}
	if loc.Country == "" {
		loc.Country = "Unknown"
	}
	if loc.CountryCode == "" {
		loc.CountryCode = "XX"
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}
	if loc.Region == "" {
		loc.Region = "Unknown"
	}
	return loc, nil
}
