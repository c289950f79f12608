package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/scmmishra/qrtrack/internal/db"
	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/utm"
)

var benchUTM = utm.Params{Source: "bench", Medium: "qr"}

// benchCode is a seeded code plus what the bench saw for it.
type benchCode struct {
	id        string
	shortCode string
	tracking  bool
	location  string // expected Location header
	hits      atomic.Int64
}

type outcome struct {
	latencies   []time.Duration
	netErrors   int64
	badStatus   int64
	badLocation int64
}

func main() {
	workers := flag.Int("c", 50, "concurrent workers")
	duration := flag.Duration("d", 10*time.Second, "load duration")
	codeCount := flag.Int("codes", 200, "codes to seed; every other one has tracking disabled")
	bufferSize := flag.Int("buffer", 500000, "QRTRACK_BUFFER_SIZE for the server under test")
	flag.Parse()

	tmpDir, err := os.MkdirTemp("", "qrtrack-bench-*")
	if err != nil {
		fatal("temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	dbPath := filepath.Join(tmpDir, "qrtrack.db")

	step("building server")
	bin := filepath.Join(tmpDir, "qrtrack-server")
	build := exec.Command("go", "build", "-o", bin, "./cmd/server")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fatal("build: %v", err)
	}

	step("seeding %d codes", *codeCount)
	codes, err := seed(dbPath, *codeCount)
	if err != nil {
		fatal("seed: %v", err)
	}

	port, err := freePort()
	if err != nil {
		fatal("port: %v", err)
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	step("starting server on %s", baseURL)
	srv, err := startServer(bin, tmpDir, port, dbPath, *bufferSize)
	if err != nil {
		fatal("start: %v", err)
	}
	if err := waitHealthy(baseURL+"/healthz", 5*time.Second); err != nil {
		srv.Process.Kill()
		fatal("server not healthy: %v", err)
	}

	step("scanning for %s with %d workers", *duration, *workers)
	start := time.Now()
	res := load(baseURL, codes, *workers, *duration)
	elapsed := time.Since(start)

	// SIGINT makes the server drain and flush the recorder before exiting.
	step("stopping server and flushing scans")
	srv.Process.Signal(syscall.SIGINT)
	if err := srv.Wait(); err != nil {
		fatal("server exit: %v (log in %s)", err, filepath.Join(tmpDir, "server.log"))
	}

	report(res, elapsed)
	if !verifyScans(dbPath, codes) {
		os.Exit(1)
	}
}

func seed(dbPath string, n int) ([]*benchCode, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer database.Close()
	store := models.NewStore(database)

	codes := make([]*benchCode, 0, n)
	for i := range n {
		c := &models.TrackedCode{
			OwnerID:        "bench",
			Name:           fmt.Sprintf("bench code %d", i),
			DestinationURL: fmt.Sprintf("https://example.com/p/%d?ref=qr", i),
			ShortCode:      fmt.Sprintf("bench%03d", i),
			UTM:            benchUTM,
			EnableTracking: i%2 == 0,
		}
		if err := store.CreateCode(context.Background(), c); err != nil {
			return nil, fmt.Errorf("code %s: %w", c.ShortCode, err)
		}
		want := c.DestinationURL
		if c.EnableTracking {
			want = utm.Compose(c.DestinationURL, c.UTM)
		}
		codes = append(codes, &benchCode{id: c.ID, shortCode: c.ShortCode, tracking: c.EnableTracking, location: want})
	}
	return codes, nil
}

func startServer(bin, dir string, port int, dbPath string, bufferSize int) (*exec.Cmd, error) {
	logFile, err := os.Create(filepath.Join(dir, "server.log"))
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(bin)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		"QRTRACK_API_KEY=bench",
		fmt.Sprintf("QRTRACK_PORT=%d", port),
		"QRTRACK_DB_PATH="+dbPath,
		"QRTRACK_FLUSH_INTERVAL=1h",
		fmt.Sprintf("QRTRACK_BUFFER_SIZE=%d", bufferSize),
		"QRTRACK_LOG_LEVEL=warn",
	)
	return cmd, cmd.Start()
}

// load hammers /r/{code} and checks every answer is a 302 to the code's
// expected destination.
func load(baseURL string, codes []*benchCode, workers int, d time.Duration) outcome {
	client := &http.Client{
		Transport: &http.Transport{MaxIdleConnsPerHost: workers},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	deadline := time.Now().Add(d)

	var (
		mu    sync.Mutex
		total outcome
		wg    sync.WaitGroup
	)
	for w := range workers {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var local outcome
			for time.Now().Before(deadline) {
				c := codes[rng.Intn(len(codes))]
				t0 := time.Now()
				resp, err := client.Get(baseURL + "/r/" + c.shortCode)
				lat := time.Since(t0)
				if err != nil {
					local.netErrors++
					continue
				}
				c.hits.Add(1)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				switch {
				case resp.StatusCode != http.StatusFound:
					local.badStatus++
				case resp.Header.Get("Location") != c.location:
					local.badLocation++
				default:
					local.latencies = append(local.latencies, lat)
				}
			}
			mu.Lock()
			total.latencies = append(total.latencies, local.latencies...)
			total.netErrors += local.netErrors
			total.badStatus += local.badStatus
			total.badLocation += local.badLocation
			mu.Unlock()
		}(int64(w) + 1)
	}
	wg.Wait()
	return total
}

func report(res outcome, elapsed time.Duration) {
	ok := len(res.latencies)
	all := int64(ok) + res.netErrors + res.badStatus + res.badLocation
	slices.Sort(res.latencies)

	fmt.Println()
	fmt.Println("Redirects")
	fmt.Printf("  requests       %d (%.0f/s)\n", all, float64(all)/elapsed.Seconds())
	fmt.Printf("  correct 302    %d\n", ok)
	fmt.Printf("  wrong status   %d\n", res.badStatus)
	fmt.Printf("  wrong Location %d\n", res.badLocation)
	fmt.Printf("  network errors %d\n", res.netErrors)
	if ok > 0 {
		fmt.Printf("  latency        p50 %s  p95 %s  p99 %s\n",
			ms(at(res.latencies, 0.50)), ms(at(res.latencies, 0.95)), ms(at(res.latencies, 0.99)))
	}
}

// verifyScans compares the event log with what was sent. Tracked codes may
// lose events to a full queue; untracked codes must have none.
func verifyScans(dbPath string, codes []*benchCode) bool {
	database, err := db.Open(dbPath)
	if err != nil {
		fatal("reopen db: %v", err)
	}
	defer database.Close()
	store := models.NewStore(database)
	ctx := context.Background()

	var sent, logged, counted, leaked int64
	for _, c := range codes {
		n, err := store.ScanCount(ctx, c.id)
		if err != nil {
			fatal("count scans: %v", err)
		}
		tc, err := store.GetCode(ctx, c.id)
		if err != nil {
			fatal("load code: %v", err)
		}
		if !c.tracking {
			leaked += int64(n) + tc.TotalScans
			continue
		}
		sent += c.hits.Load()
		logged += int64(n)
		counted += tc.TotalScans
	}

	fmt.Println()
	fmt.Println("Scans")
	fmt.Printf("  tracked requests   %d\n", sent)
	fmt.Printf("  events logged      %d\n", logged)
	fmt.Printf("  total_scans        %d\n", counted)
	if sent > 0 {
		fmt.Printf("  dropped            %d (%.2f%%)\n", sent-logged, 100*float64(sent-logged)/float64(sent))
	}
	fmt.Printf("  untracked scans    %d\n", leaked)

	healthy := true
	if leaked != 0 {
		fmt.Println("FAIL: scans were recorded for codes with tracking disabled")
		healthy = false
	}
	if logged > sent || counted != logged {
		fmt.Println("FAIL: event log and total_scans disagree with requests sent")
		healthy = false
	}
	return healthy
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

func waitHealthy(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for end := time.Now().Add(timeout); time.Now().Before(end); time.Sleep(50 * time.Millisecond) {
		resp, err := client.Get(url)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	return errors.New("timed out")
}

func at(sorted []time.Duration, q float64) time.Duration {
	i := int(float64(len(sorted)) * q)
	return sorted[min(i, len(sorted)-1)]
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func step(format string, args ...any) {
	fmt.Printf("==> "+format+"\n", args...)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "bench: "+format+"\n", args...)
	os.Exit(1)
}
