// demand-watch polls a demandmonitor server and prints a colored demand
// table for a set of monitors.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/chrissnell/demandmonitor/internal/controllers/restserver"
	"github.com/chrissnell/demandmonitor/internal/demand"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Base URL of the demandmonitor server")
	monitorsFile := flag.String("monitors", "", "JSON file holding an array of monitor definitions")
	fixes := flag.String("fixes", "", "Comma-separated fixes to watch when no monitors file is given")
	bucket := flag.Int("bucket", 15, "Bucket width in minutes")
	horizon := flag.Int("horizon", 4, "Horizon in hours")
	interval := flag.Duration("interval", time.Minute, "Poll interval; 0 polls once")
	threshold := flag.Int("threshold", 10, "Per-bucket count shown in red")
	flag.Parse()

	specs, err := loadMonitors(*monitorsFile, *fixes)
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: 30 * time.Second}
	req := restserver.BatchRequest{Monitors: specs, BucketMinutes: *bucket, HorizonHours: *horizon}

	for {
		resp, err := fetchBatch(ctx, client, *server, req)
		if err != nil {
			color.Red("poll failed: %v", err)
		} else {
			renderTable(os.Stdout, resp, *threshold)
		}

		if *interval <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*interval):
		}
	}
}

func loadMonitors(file, fixes string) ([]demand.MonitorSpec, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("could not read monitors file: %w", err)
		}
		var specs []demand.MonitorSpec
		if err := json.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("could not parse monitors file: %w", err)
		}
		return specs, nil
	}

	var specs []demand.MonitorSpec
	for _, f := range strings.Split(fixes, ",") {
		if f = strings.TrimSpace(f); f != "" {
			specs = append(specs, demand.MonitorSpec{Type: "fix", Fix: f})
		}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("nothing to watch: pass -monitors or -fixes")
	}
	return specs, nil
}

func fetchBatch(ctx context.Context, client *http.Client, server string, body restserver.BatchRequest) (*restserver.BatchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+"/api/demand/batch", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, e.Error)
	}

	var out restserver.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return &out, nil
}
