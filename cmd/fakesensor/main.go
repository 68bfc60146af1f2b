// cmd/fakesensor emulates one or more air-Q devices for local development:
// it serves encrypted /data/ documents the collector can poll without
// hardware on the network.
package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/airqmon/internal/airq"
)

type fakeDevice struct {
	crypto  *airq.Crypto
	latency time.Duration
	// baselineHealth drifts downward when FAKE_AIRQ_DEGRADE is set, which is
	// handy for provoking alerts end to end.
	degrade bool
	start   time.Time
}

func main() {
	addr := getenvDefault("FAKE_AIRQ_ADDR", ":18080")
	secret := getenvDefault("FAKE_AIRQ_PASSWORD", "airqsetup")
	paths := strings.Split(getenvDefault("FAKE_AIRQ_SENSORS", "/livingroom"), ",")
	latencyMs := getenvIntDefault("FAKE_AIRQ_LATENCY_MS", 0)
	degrade := os.Getenv("FAKE_AIRQ_DEGRADE") != ""

	dev := &fakeDevice{
		crypto:  airq.NewCrypto(secret),
		latency: time.Duration(latencyMs) * time.Millisecond,
		degrade: degrade,
		start:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		mux.HandleFunc(strings.TrimSuffix(p, "/")+"/data/", dev.handleData)
	}

	log.Printf("fake air-Q device listening on %s (sensors: %s)", addr, strings.Join(paths, ", "))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func (d *fakeDevice) handleData(w http.ResponseWriter, r *http.Request) {
	if d.latency > 0 {
		time.Sleep(d.latency)
	}

	payload, err := json.Marshal(d.sample())
	if err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	content, err := d.crypto.EncodeMessage(payload)
	if err != nil {
		http.Error(w, "encrypt error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"content": content})
}

// sample produces one plausible reading. Most metrics are [value, error]
// pairs like the real firmware emits; a couple are plain numbers.
func (d *fakeDevice) sample() map[string]any {
	health := 780 + rand.Float64()*150
	if d.degrade {
		// sink roughly 50 points per minute of uptime, floor at 100
		health -= time.Since(d.start).Minutes() * 50
		if health < 100 {
			health = 100
		}
	}
	return map[string]any{
		"temperature": pair(21.5+jitter(1.5), 0.55),
		"humidity":    pair(45+jitter(8), 3.8),
		"co2":         pair(600+jitter(150), 75),
		"pressure":    pair(1013+jitter(4), 1),
		"no2":         pair(18+jitter(6), 4),
		"tvoc":        pair(120+jitter(40), 15),
		"pm1":         pair(4+jitter(2), 1),
		"pm2_5":       pair(6+jitter(3), 1),
		"pm10":        pair(9+jitter(4), 1),
		"sound":       pair(38+jitter(10), 2),
		"health":      health,
		"timestamp":   time.Now().UnixMilli(),
		"DeviceID":    "fake-air-q",
	}
}

func pair(v, errRange float64) []float64 { return []float64{v, errRange} }

func jitter(spread float64) float64 { return (rand.Float64()*2 - 1) * spread }

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
