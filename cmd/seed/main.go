package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/scmmishra/qrtrack/internal/analytics"
	"github.com/scmmishra/qrtrack/internal/db"
	"github.com/scmmishra/qrtrack/internal/logger"
	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/slug"
	"github.com/scmmishra/qrtrack/internal/utm"
)

type seedCode struct {
	name     string
	dest     string
	utm      utm.Params
	landing  bool
	tracking bool
	// weight scales daily scan volume.
	weight float64
}

var codes = []seedCode{
	{"Spring menu table tent", "https://example.com/menu", utm.Params{Source: "table-tent", Medium: "print", Campaign: "spring-menu"}, false, true, 5.0},
	{"Shop window poster", "https://example.com/sale", utm.Params{Source: "poster", Medium: "print", Campaign: "summer-sale"}, true, true, 4.0},
	{"Bus stop billboard", "https://example.com/app?ref=ooh", utm.Params{Source: "billboard", Medium: "ooh", Campaign: "app-launch"}, false, true, 3.5},
	{"Product packaging", "https://example.com/register", utm.Params{Source: "packaging", Medium: "print", Content: "box-v2"}, true, true, 2.5},
	{"Conference badge", "https://example.com/talk", utm.Params{Source: "badge", Medium: "event", Campaign: "devconf", Term: "speaker"}, false, true, 1.5},
	{"Business card", "https://example.com/about", utm.Params{}, false, false, 1.0},
}

var userAgents = []struct {
	ua     string
	weight float64
}{
	{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1", 40},
	{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36", 35},
	{"Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1", 8},
	{"Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", 4},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", 8},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15", 5},
}

var countries = []struct {
	country string
	city    string
	weight  float64
}{
	{"US", "New York", 25},
	{"IN", "Bengaluru", 20},
	{"DE", "Berlin", 10},
	{"GB", "London", 8},
	{"BR", "São Paulo", 6},
	{"FR", "Paris", 5},
	{"JP", "Tokyo", 3},
}

func main() {
	_ = godotenv.Load()
	defaultPath := os.Getenv("QRTRACK_DB_PATH")
	if defaultPath == "" {
		defaultPath = "./qrtrack.db"
	}
	dbPath := flag.String("db", defaultPath, "SQLite database path")
	days := flag.Int("days", 90, "days of scan history to generate")
	flag.Parse()

	log := logger.New("info", "text", os.Stderr)

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Error("open db", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	store := models.NewStore(database)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -*days)

	fmt.Println("Seeding codes...")
	created := make([]*models.TrackedCode, 0, len(codes))
	for _, sc := range codes {
		shortCode, err := slug.Generate(slug.Length)
		if err != nil {
			log.Error("generate short code", slog.Any("error", err))
			os.Exit(1)
		}
		c := &models.TrackedCode{
			OwnerID:        "demo-owner",
			Name:           sc.name,
			DestinationURL: sc.dest,
			ShortCode:      shortCode,
			UTM:            sc.utm,
			EnableTracking: sc.tracking,
			LandingPage: models.LandingPage{
				Enabled:     sc.landing,
				Title:       sc.name,
				Description: "Scan to learn more.",
			},
		}
		if err := store.CreateCode(ctx, c); err != nil {
			log.Error("create code", slog.String("name", sc.name), slog.Any("error", err))
			os.Exit(1)
		}
		created = append(created, c)
		fmt.Printf("  /r/%s -> %s\n", c.ShortCode, sc.name)
	}

	fmt.Println("\nGenerating scans...")
	total := 0
	for i, sc := range codes {
		c := created[i]
		if !c.EnableTracking {
			continue
		}

		var batch []models.ScanEvent
		for day := start; day.Before(now); day = day.Add(24 * time.Hour) {
			n := int(sc.weight * 6 * (0.6 + rng.Float64()*0.8))
			if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
				n = n * 3 / 2
			}
			for range n {
				at := day.Add(time.Duration(rng.Intn(24*60*60)) * time.Second)
				if at.After(now) {
					continue
				}
				batch = append(batch, scanAt(rng, c, at))
			}
		}

		for len(batch) > 0 {
			chunk := batch[:min(500, len(batch))]
			if err := store.BatchInsertScans(ctx, chunk); err != nil {
				log.Error("insert scans", slog.String("code_id", c.ID), slog.Any("error", err))
				os.Exit(1)
			}
			if err := store.IncrementScanCounts(ctx, map[string]int{c.ID: len(chunk)}); err != nil {
				log.Error("increment scans", slog.String("code_id", c.ID), slog.Any("error", err))
				os.Exit(1)
			}
			total += len(chunk)
			batch = batch[len(chunk):]
		}
		fmt.Printf("  /r/%-10s scans generated\n", c.ShortCode)
	}

	fmt.Printf("\nDone! Created %d codes with %d total scans.\n", len(created), total)
	fmt.Printf("Database: %s\n", *dbPath)
}

func scanAt(rng *rand.Rand, c *models.TrackedCode, at time.Time) models.ScanEvent {
	ua := pickUA(rng)
	client := analytics.Classify(ua)
	loc := countries[pickIndex(rng, len(countries), func(i int) float64 { return countries[i].weight })]

	ev := models.ScanEvent{
		CodeID:     c.ID,
		ScannedAt:  at,
		UserAgent:  ua,
		DeviceType: client.DeviceClass,
		OS:         client.OS,
		Browser:    client.Browser,
		IP:         fmt.Sprintf("%d.%d.%d.%d", rng.Intn(223)+1, rng.Intn(256), rng.Intn(256), rng.Intn(256)),
		Country:    loc.country,
		City:       loc.city,
	}
	if !c.UTM.IsEmpty() {
		snap := c.UTM
		ev.UTMSnapshot = &snap
	}
	return ev
}

func pickUA(rng *rand.Rand) string {
	return userAgents[pickIndex(rng, len(userAgents), func(i int) float64 { return userAgents[i].weight })].ua
}

func pickIndex(rng *rand.Rand, n int, weight func(int) float64) int {
	var total float64
	for i := range n {
		total += weight(i)
	}
	v := rng.Float64() * total
	for i := range n {
		v -= weight(i)
		if v <= 0 {
			return i
		}
	}
	return n - 1
}
