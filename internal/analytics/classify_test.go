package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_EmptyString(t *testing.T) {
	assert.Equal(t, ClientInfo{DeviceClass: DeviceDesktop, OS: Unknown, Browser: Unknown}, Classify(""))
	assert.Equal(t, ClientInfo{DeviceClass: DeviceDesktop, OS: Unknown, Browser: Unknown}, Classify("   "))
}

func TestClassify_RealWorldAgents(t *testing.T) {
	cases := []struct {
		name    string
		ua      string
		device  string
		os      string
		browser string
	}{
		{
			name:    "chrome windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:  DeviceDesktop,
			os:      "Windows",
			browser: "Chrome",
		},
		{
			name:    "safari iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  DeviceMobile,
			os:      "iOS",
			browser: "Safari",
		},
		{
			name:    "chrome android phone",
			ua:      "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			device:  DeviceMobile,
			os:      "Android",
			browser: "Chrome",
		},
		{
			name:    "firefox linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
			device:  DeviceDesktop,
			os:      "Linux",
			browser: "Firefox",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.ua)
			assert.Equal(t, tc.device, got.DeviceClass)
			assert.Equal(t, tc.os, got.OS)
			assert.Equal(t, tc.browser, got.Browser)
		})
	}
}

func TestClassify_Tablets(t *testing.T) {
	ipad := "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	got := Classify(ipad)
	assert.Equal(t, DeviceTablet, got.DeviceClass)
	assert.Equal(t, "iOS", got.OS)

	androidTab := "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	got = Classify(androidTab)
	assert.Equal(t, DeviceTablet, got.DeviceClass)
	assert.Equal(t, "Android", got.OS)
}

func TestClassify_MacDesktop(t *testing.T) {
	got := Classify("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15")
	assert.Equal(t, DeviceDesktop, got.DeviceClass)
	assert.Equal(t, "macOS", got.OS)
}

func TestClassify_GarbageIsTotal(t *testing.T) {
	for _, ua := range []string{"curl/8.4.0", "???", "Mozilla", "\x00\xff"} {
		got := Classify(ua)
		assert.NotEmpty(t, got.DeviceClass, ua)
		assert.NotEmpty(t, got.OS, ua)
		assert.NotEmpty(t, got.Browser, ua)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	assert.Equal(t, Classify(ua), Classify(ua))
}
