package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/Jaswanthnimmalla/TinyLink/internal/errors"
	"github.com/Jaswanthnimmalla/TinyLink/internal/models"
	"github.com/Jaswanthnimmalla/TinyLink/internal/repository"
)

// Plafonds du rapport d'analytics : top 5 villes par pays, top 5 pays,
// top 10 referrers, 10 derniers clics.
const (
	topCitiesLimit    = 5
	topCountriesLimit = 5
	topReferrersLimit = 10
	recentClicksLimit = 10
)

// CityStats compte les clics d'une ville au sein d'un pays.
type CityStats struct {
	City   string `json:"city"`
	Clicks int    `json:"clicks"`
}

// CountryStats regroupe les clics d'un pays avec ses principales villes.
type CountryStats struct {
	Country     string      `json:"country"`
	CountryCode string      `json:"countryCode"`
	Clicks      int         `json:"clicks"`
	Percentage  string      `json:"percentage"`
	Cities      []CityStats `json:"cities"`
}

// DeviceStats compte les clics par type d'appareil.
type DeviceStats struct {
	Device     string `json:"device"`
	Clicks     int    `json:"clicks"`
	Percentage string `json:"percentage"`
}

// BrowserStats compte les clics par navigateur.
type BrowserStats struct {
	Browser    string `json:"browser"`
	Clicks     int    `json:"clicks"`
	Percentage string `json:"percentage"`
}

// OSStats compte les clics par système d'exploitation.
type OSStats struct {
	OS         string `json:"os"`
	Clicks     int    `json:"clicks"`
	Percentage string `json:"percentage"`
}

// ReferrerStats compte les clics par provenance.
type ReferrerStats struct {
	Referrer   string `json:"referrer"`
	Clicks     int    `json:"clicks"`
	Percentage string `json:"percentage"`
}

// HourlyBucket est un créneau du heatmap horaire (0 à 23 heures).
type HourlyBucket struct {
	Hour   int `json:"hour"`
	Clicks int `json:"clicks"`
}

// RecentClick est un clic individuel du rapport, sans l'adresse IP ni le
// User-Agent brut.
type RecentClick struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Device      string `json:"device"`
	Browser     string `json:"browser"`
	OS          string `json:"os"`
	Referrer    string `json:"referrer"`
	Timestamp   string `json:"timestamp"`
}

// LinkAnalytics est le rapport agrégé du registre des clics d'un lien.
type LinkAnalytics struct {
	TotalTrackedClicks int             `json:"totalTrackedClicks"`
	Countries          []CountryStats  `json:"countries"`
	TopCountries       []CountryStats  `json:"topCountries"`
	Devices            []DeviceStats   `json:"devices"`
	Browsers           []BrowserStats  `json:"browsers"`
	OperatingSystems   []OSStats       `json:"operatingSystems"`
	Referrers          []ReferrerStats `json:"referrers"`
	ClicksByDay        map[string]int  `json:"last7Days"`
	Hourly             []HourlyBucket  `json:"hourly"`
	RecentClicks       []RecentClick   `json:"recentClicks"`
}

// AnalyticsService construit le rapport d'analytics d'un lien à partir du
// registre détaillé des clics. Tout est recalculé à chaque requête : le
// registre est en append-only et les agrégats ne sont jamais matérialisés.
type AnalyticsService struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
}

// NewAnalyticsService crée et retourne une nouvelle instance de AnalyticsService.
func NewAnalyticsService(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository) *AnalyticsService {
	return &AnalyticsService{
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
	}
}

// GetLinkAnalytics retourne le lien et son rapport d'analytics agrégé.
func (s *AnalyticsService) GetLinkAnalytics(code string) (*models.Link, *LinkAnalytics, error) {
	link, err := s.linkRepo.GetLinkByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &apperrors.ErrLinkNotFound{Code: code}
		}
		return nil, nil, fmt.Errorf("database error resolving link: %w", err)
	}

	clicks, err := s.clickRepo.FindClicksByLinkID(link.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching clicks: %w", err)
	}

	return link, buildLinkAnalytics(clicks), nil
}

// percentage formate la part d'un compte dans le total, avec une décimale.
func percentage(count, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(count)/float64(total)*100)
}

// buildLinkAnalytics calcule tous les agrégats du rapport en un seul parcours
// du registre. Les clics arrivent triés du plus récent au plus ancien.
func buildLinkAnalytics(clicks []models.Click) *LinkAnalytics {
	total := len(clicks)

	type countryAgg struct {
		countryCode string
		count       int
		cities      map[string]int
	}
	countries := make(map[string]*countryAgg)
	devices := make(map[string]int)
	browsers := make(map[string]int)
	operatingSystems := make(map[string]int)
	referrers := make(map[string]int)
	clicksByDay := make(map[string]int)
	var hourly [24]int

	cutoff7Days := time.Now().AddDate(0, 0, -7)

	for _, click := range clicks {
		country := click.Country
		if country == "" {
			country = "Unknown"
		}
		countryCode := click.CountryCode
		if countryCode == "" {
			countryCode = "XX"
		}
		agg, ok := countries[country]
		if !ok {
			agg = &countryAgg{countryCode: countryCode, cities: make(map[string]int)}
			countries[country] = agg
		}
		agg.count++

		city := click.City
		if city == "" {
			city = "Unknown"
		}
		agg.cities[city]++

		device := click.Device
		if device == "" {
			device = "Unknown"
		}
		devices[device]++

		browser := click.Browser
		if browser == "" {
			browser = "Unknown"
		}
		browsers[browser]++

		os := click.OS
		if os == "" {
			os = "Unknown"
		}
		operatingSystems[os]++

		referrer := click.Referrer
		if referrer == "" {
			referrer = "Direct"
		}
		referrers[referrer]++

		// Regroupement par jour limité aux 7 derniers jours; le heatmap
		// horaire couvre lui tout l'historique
		if !click.ClickedAt.Before(cutoff7Days) {
			clicksByDay[click.ClickedAt.Format("1/2/2006")]++
		}
		hourly[click.ClickedAt.Hour()]++
	}

	countryBreakdown := make([]CountryStats, 0, len(countries))
	for name, agg := range countries {
		cities := make([]CityStats, 0, len(agg.cities))
		for city, count := range agg.cities {
			cities = append(cities, CityStats{City: city, Clicks: count})
		}
		sortByClicksDesc(cities, func(c CityStats) (int, string) { return c.Clicks, c.City })
		if len(cities) > topCitiesLimit {
			cities = cities[:topCitiesLimit]
		}
		countryBreakdown = append(countryBreakdown, CountryStats{
			Country:     name,
			CountryCode: agg.countryCode,
			Clicks:      agg.count,
			Percentage:  percentage(agg.count, total),
			Cities:      cities,
		})
	}
	sortByClicksDesc(countryBreakdown, func(c CountryStats) (int, string) { return c.Clicks, c.Country })

	topCountries := countryBreakdown
	if len(topCountries) > topCountriesLimit {
		topCountries = topCountries[:topCountriesLimit]
	}

	deviceBreakdown := make([]DeviceStats, 0, len(devices))
	for device, count := range devices {
		deviceBreakdown = append(deviceBreakdown, DeviceStats{Device: device, Clicks: count, Percentage: percentage(count, total)})
	}
	sortByClicksDesc(deviceBreakdown, func(d DeviceStats) (int, string) { return d.Clicks, d.Device })

	browserBreakdown := make([]BrowserStats, 0, len(browsers))
	for browser, count := range browsers {
		browserBreakdown = append(browserBreakdown, BrowserStats{Browser: browser, Clicks: count, Percentage: percentage(count, total)})
	}
	sortByClicksDesc(browserBreakdown, func(b BrowserStats) (int, string) { return b.Clicks, b.Browser })

	osBreakdown := make([]OSStats, 0, len(operatingSystems))
	for os, count := range operatingSystems {
		osBreakdown = append(osBreakdown, OSStats{OS: os, Clicks: count, Percentage: percentage(count, total)})
	}
	sortByClicksDesc(osBreakdown, func(o OSStats) (int, string) { return o.Clicks, o.OS })

	referrerBreakdown := make([]ReferrerStats, 0, len(referrers))
	for referrer, count := range referrers {
		referrerBreakdown = append(referrerBreakdown, ReferrerStats{Referrer: referrer, Clicks: count, Percentage: percentage(count, total)})
	}
	sortByClicksDesc(referrerBreakdown, func(r ReferrerStats) (int, string) { return r.Clicks, r.Referrer })
	if len(referrerBreakdown) > topReferrersLimit {
		referrerBreakdown = referrerBreakdown[:topReferrersLimit]
	}

	hourlyData := make([]HourlyBucket, 24)
	for hour := 0; hour < 24; hour++ {
		hourlyData[hour] = HourlyBucket{Hour: hour, Clicks: hourly[hour]}
	}

	recentLimit := recentClicksLimit
	if len(clicks) < recentLimit {
		recentLimit = len(clicks)
	}
	recentClicks := make([]RecentClick, 0, recentLimit)
	for _, click := range clicks[:recentLimit] {
		recentClicks = append(recentClicks, RecentClick{
			Country:     click.Country,
			CountryCode: click.CountryCode,
			City:        click.City,
			Device:      click.Device,
			Browser:     click.Browser,
			OS:          click.OS,
			Referrer:    click.Referrer,
			Timestamp:   click.ClickedAt.Format(time.RFC3339Nano),
		})
	}

	return &LinkAnalytics{
		TotalTrackedClicks: total,
		Countries:          countryBreakdown,
		TopCountries:       topCountries,
		Devices:            deviceBreakdown,
		Browsers:           browserBreakdown,
		OperatingSystems:   osBreakdown,
		Referrers:          referrerBreakdown,
		ClicksByDay:        clicksByDay,
		Hourly:             hourlyData,
		RecentClicks:       recentClicks,
	}
}

// sortByClicksDesc trie un breakdown par nombre de clics décroissant, avec le
// libellé comme critère secondaire pour un ordre déterministe.
func sortByClicksDesc[T any](entries []T, key func(T) (int, string)) {
	sort.Slice(entries, func(i, j int) bool {
		ci, li := key(entries[i])
		cj, lj := key(entries[j])
		if ci != cj {
			return ci > cj
		}
		return li < lj
	})
}
