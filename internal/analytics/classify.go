package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"

	Unknown = "Unknown"
)

// ClientInfo is the classification of a raw User-Agent string.
type ClientInfo struct {
	DeviceClass string
	OS          string
	Browser     string
}

// Ordered: iOS tokens must win over "mac os x", Android over "linux".
var osRules = []struct {
	name     string
	keywords []string
}{
	{"Windows Phone", []string{"windows phone"}},
	{"Windows", []string{"windows"}},
	{"iOS", []string{"iphone", "ipad", "ipod"}},
	{"macOS", []string{"macintosh", "mac os x"}},
	{"Android", []string{"android"}},
	{"Chrome OS", []string{"cros", "chromeos"}},
	{"Linux", []string{"linux", "ubuntu", "fedora", "debian", "x11"}},
}

var tabletKeywords = []string{"ipad", "tablet", "kindle", "silk/", "playbook"}

// Classify maps a User-Agent to device class, OS and browser. It never fails:
// anything unrecognised is "desktop" / "Unknown" / "Unknown".
func Classify(rawUA string) ClientInfo {
	info := ClientInfo{DeviceClass: DeviceDesktop, OS: Unknown, Browser: Unknown}
	if strings.TrimSpace(rawUA) == "" {
		return info
	}

	lower := strings.ToLower(rawUA)
	ua := useragent.New(rawUA)

	info.DeviceClass = deviceClass(lower, ua)
	info.OS = osName(lower)
	if name, _ := ua.Browser(); name != "" {
		info.Browser = name
	}
	return info
}

func deviceClass(lower string, ua *useragent.UserAgent) string {
	if containsAny(lower, tabletKeywords) {
		return DeviceTablet
	}
	// Android tablets omit the "Mobile" token that phones carry.
	if strings.Contains(lower, "android") {
		if strings.Contains(lower, "mobile") {
			return DeviceMobile
		}
		return DeviceTablet
	}
	if ua.Mobile() || strings.Contains(lower, "iphone") || strings.Contains(lower, "ipod") {
		return DeviceMobile
	}
	return DeviceDesktop
}

func osName(lower string) string {
	for _, rule := range osRules {
		if containsAny(lower, rule.keywords) {
			return rule.name
		}
	}
	return Unknown
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
