package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// Substrings matched case-insensitively against the User-Agent. QR short
// links are mostly shared in chat apps, so unfurlers dominate the list.
var botSignatures = []string{
	"bot",
	"spider",
	"crawl",

	// Link-preview fetchers
	"facebookexternalhit",
	"facebot",
	"whatsapp",
	"slackbot",
	"telegrambot",
	"discordbot",
	"applebot",
	"twitterbot",
	"linkedinbot",
	"skypeuripreview",
	"preview",

	// HTTP clients and scanners
	"go-http-client/",
	"curl/",
	"wget/",
	"python-requests/",
	"python-urllib/",
	"okhttp/",
	"java/",
	"libwww-perl/",
	"zgrab/",

	// Headless renderers
	"headlesschrome/",
	"phantomjs",
	"chrome-lighthouse",
}

// IsBot reports whether the User-Agent looks like an automated client
// rather than a person scanning a code.
func IsBot(rawUA string) bool {
	if rawUA == "" {
		return false
	}
	if useragent.New(rawUA).Bot() {
		return true
	}
	lower := strings.ToLower(rawUA)
	return containsAny(lower, botSignatures)
}
