package analytics

import (
	"regexp"
	"strings"
)

// DeviceInfo contient le résultat du parsing d'une chaîne User-Agent.
type DeviceInfo struct {
	Device  string // Desktop, Mobile ou Tablet
	Browser string
	OS      string
}

// Expressions précompilées pour extraire les versions d'OS.
var (
	macVersionRe     = regexp.MustCompile(`mac os x ([\d_]+)`)
	androidVersionRe = regexp.MustCompile(`android ([\d.]+)`)
	iosVersionRe     = regexp.MustCompile(`os ([\d_]+)`)
)

// Sous-chaînes identifiant un appareil mobile (vérifiées après les tablettes,
// car certains User-Agents de tablettes contiennent aussi "Android").
var mobileMarkers = []string{
	"mobile", "android", "iphone", "ipod", "iemobile", "blackberry",
	"kindle", "silk-accelerated", "hpwos", "webos", "opera mobi", "opera mini",
}

// ParseUserAgent extrait l'appareil, le navigateur et l'OS d'une chaîne User-Agent
// par correspondance de sous-chaînes connues. L'ordre des vérifications est
// significatif : Tablet avant Mobile avant Desktop, et Edge avant Chrome
// (les User-Agents d'Edge contiennent aussi "Chrome").
func ParseUserAgent(userAgent string) DeviceInfo {
	ua := strings.ToLower(userAgent)

	// Détection de l'appareil. Tablet est prioritaire sur Mobile : un Android
	// sans le marqueur "mobi" est considéré comme une tablette.
	device := "Desktop"
	isTablet := strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "playbook") || strings.Contains(ua, "silk") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobi"))
	if isTablet {
		device = "Tablet"
	} else {
		for _, marker := range mobileMarkers {
			if strings.Contains(ua, marker) {
				device = "Mobile"
				break
			}
		}
	}

	// Détection du navigateur, par ordre de précédence.
	browser := "Unknown"
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		browser = "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edg"):
		browser = "Chrome"
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident/"):
		browser = "Internet Explorer"
	}

	// Détection de l'OS, avec extraction de version quand elle est disponible.
	os := "Unknown"
	switch {
	case strings.Contains(ua, "windows nt 10.0"):
		os = "Windows 10/11"
	case strings.Contains(ua, "windows nt 6.3"):
		os = "Windows 8.1"
	case strings.Contains(ua, "windows nt 6.2"):
		os = "Windows 8"
	case strings.Contains(ua, "windows nt 6.1"):
		os = "Windows 7"
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		// Avant macOS : les User-Agents iOS contiennent tous "like Mac OS X"
		os = "iOS"
		if m := iosVersionRe.FindStringSubmatch(ua); m != nil {
			os = "iOS " + strings.ReplaceAll(m[1], "_", ".")
		}
	case strings.Contains(ua, "mac os x"):
		os = "macOS"
		if m := macVersionRe.FindStringSubmatch(ua); m != nil {
			os = "macOS " + strings.ReplaceAll(m[1], "_", ".")
		}
	case strings.Contains(ua, "android"):
		os = "Android"
		if m := androidVersionRe.FindStringSubmatch(ua); m != nil {
			os = "Android " + m[1]
		}
	case strings.Contains(ua, "linux"):
		os = "Linux"
	case strings.Contains(ua, "cros"):
		os = "Chrome OS"
	}

	return DeviceInfo{Device: device, Browser: browser, OS: os}
}
