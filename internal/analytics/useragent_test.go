package analytics

import "testing"

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		wantDevice  string
		wantBrowser string
		wantOS      string
	}{
		{
			name:        "iPhone Safari",
			userAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			wantDevice:  "Mobile",
			wantBrowser: "Safari",
			wantOS:      "iOS 17.2",
		},
		{
			name:        "Windows Chrome",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantDevice:  "Desktop",
			wantBrowser: "Chrome",
			wantOS:      "Windows 10/11",
		},
		{
			name:        "Edge avant Chrome (le UA contient les deux)",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			wantDevice:  "Desktop",
			wantBrowser: "Edge",
			wantOS:      "Windows 10/11",
		},
		{
			name:        "Tablette Android sans marqueur mobi",
			userAgent:   "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			wantDevice:  "Tablet",
			wantBrowser: "Chrome",
			wantOS:      "Android 13",
		},
		{
			name:        "Téléphone Android avec marqueur Mobile",
			userAgent:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			wantDevice:  "Mobile",
			wantBrowser: "Chrome",
			wantOS:      "Android 14",
		},
		{
			name:        "iPad",
			userAgent:   "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			wantDevice:  "Tablet",
			wantBrowser: "Safari",
			wantOS:      "iOS 16.6",
		},
		{
			name:        "macOS Firefox",
			userAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7; rv:121.0) Gecko/20100101 Firefox/121.0",
			wantDevice:  "Desktop",
			wantBrowser: "Firefox",
			wantOS:      "macOS 10.15.7",
		},
		{
			name:        "Internet Explorer 11",
			userAgent:   "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			wantDevice:  "Desktop",
			wantBrowser: "Internet Explorer",
			wantOS:      "Windows 7",
		},
		{
			name:        "Opera",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			wantDevice:  "Desktop",
			wantBrowser: "Opera",
			wantOS:      "Windows 10/11",
		},
		{
			name:        "User-Agent inconnu",
			userAgent:   "curl/8.4.0",
			wantDevice:  "Desktop",
			wantBrowser: "Unknown",
			wantOS:      "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUserAgent(tt.userAgent)
			if got.Device != tt.wantDevice {
				t.Errorf("Device = %q, attendu %q", got.Device, tt.wantDevice)
			}
			if got.Browser != tt.wantBrowser {
				t.Errorf("Browser = %q, attendu %q", got.Browser, tt.wantBrowser)
			}
			if got.OS != tt.wantOS {
				t.Errorf("OS = %q, attendu %q", got.OS, tt.wantOS)
			}
		})
	}
}
