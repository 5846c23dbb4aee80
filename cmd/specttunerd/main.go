// Command specttunerd wires the specttuner/detect core to the outside
// world: a websocket feed of live PSD frames and channel lists, a
// Prometheus /metrics endpoint, MQTT channel-event publishing, and an MCP
// tool surface for querying detector state. Grounded on the teacher's
// main.go bootstrap (flag/config load, signal handling, goroutine fan-out).
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	hcversion "github.com/hashicorp/go-version"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/specttunerd/detect"
	"github.com/cwsl/specttunerd/internal/config"
	"github.com/cwsl/specttunerd/internal/metrics"
	"github.com/cwsl/specttunerd/internal/telemetry"
	"github.com/cwsl/specttunerd/sampling"
	"github.com/cwsl/specttunerd/specttuner"
)

// minGoVersion is the oldest Go runtime this daemon is known to work on,
// checked at startup the way the teacher's version_checker.go compares a
// fetched version string before acting on it.
const minGoVersion = "1.21.0"

func checkGoVersion() {
	have, err := hcversion.NewVersion(runtime.Version()[2:]) // strip "go" prefix
	if err != nil {
		log.Printf("specttunerd: could not parse Go runtime version %q: %v", runtime.Version(), err)
		return
	}
	want, err := hcversion.NewVersion(minGoVersion)
	if err != nil {
		log.Fatalf("specttunerd: invalid minimum Go version constant %q: %v", minGoVersion, err)
	}
	if have.LessThan(want) {
		log.Printf("specttunerd: running on Go %s, older than the minimum tested %s", have, want)
	}
}

func main() {
	configPath := flag.String("config", "specttunerd.yaml", "Path to configuration file")
	flag.Parse()

	checkGoVersion()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("specttunerd: %v, falling back to defaults", err)
		cfg = config.Default()
	}

	tuner, err := buildTuner(cfg.Tuner)
	if err != nil {
		log.Fatalf("specttunerd: building tuner: %v", err)
	}

	det, err := buildDetector(cfg.Detector)
	if err != nil {
		log.Fatalf("specttunerd: building detector: %v", err)
	}

	met := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		met.StartHostSampler(ctx, time.Duration(cfg.Metrics.HostSampleSeconds)*time.Second)
		go serveMetrics(cfg.Metrics.ListenAddr)
	}

	var publisher *telemetry.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = telemetry.NewPublisher(cfg.MQTT)
		if err != nil {
			log.Printf("specttunerd: mqtt disabled: %v", err)
		} else {
			defer publisher.Close()
		}
	}

	hub := newStreamHub(cfg.Websocket, tuner, det, met, publisher)
	go hub.run(ctx)

	if cfg.MCP.Enabled {
		mcpSrv := telemetry.NewServer(hub)
		go func() {
			log.Printf("specttunerd: mcp tool server listening on %s", cfg.MCP.ListenAddr)
			if err := http.ListenAndServe(cfg.MCP.ListenAddr, mcpSrv.Handler()); err != nil {
				log.Printf("specttunerd: mcp server stopped: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("specttunerd: shutting down")
	cancel()
}

func buildTuner(cfg config.TunerConfig) (*specttuner.Specttuner, error) {
	s, err := specttuner.New(specttuner.Params{
		WindowSize:     cfg.WindowSize,
		EarlyWindowing: cfg.EarlyWindowing,
	})
	if err != nil {
		return nil, err
	}

	for _, spec := range cfg.Channels {
		domain := specttuner.TimeDomain
		if spec.FreqDomain {
			domain = specttuner.FreqDomain
		}

		_, err := s.OpenChannel(specttuner.ChannelParams{
			F0:      sampling.Norm2AngFreq(sampling.Abs2NormFreq(sampling.F(cfg.SampRate), sampling.F(spec.FreqHz))),
			DeltaF:  sampling.Norm2AngFreq(sampling.Abs2NormFreq(sampling.F(cfg.SampRate), sampling.F(spec.DeltaFHz))),
			BW:      sampling.Norm2AngFreq(sampling.Abs2NormFreq(sampling.F(cfg.SampRate), sampling.F(spec.BWHz))),
			Guard:   sampling.F(spec.Guard),
			Precise: spec.Precise,
			Domain:  domain,
		})
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

func buildDetector(cfg config.DetectorConfig) (*detect.Detector, error) {
	params := detect.DefaultParams()
	params.SampRate = cfg.SampRate
	if cfg.WindowSize != 0 {
		params.WindowSize = cfg.WindowSize
	}
	if cfg.Decimation != 0 {
		params.Decimation = cfg.Decimation
	}
	params.SNR = sampling.F(cfg.SNR)
	if cfg.MaxAge != 0 {
		params.MaxAge = cfg.MaxAge
	}
	params.Tune = cfg.Tune
	params.Fc = sampling.F(cfg.Fc)
	params.BW = sampling.F(cfg.BW)

	switch cfg.Mode {
	case "discovery":
		params.Mode = detect.ModeDiscovery
	case "autocorrelation":
		params.Mode = detect.ModeAutocorrelation
	case "nonlinear_diff":
		params.Mode = detect.ModeNonlinearDiff
	case "", "spectrum":
		params.Mode = detect.ModeSpectrum
	default:
		log.Printf("specttunerd: unknown detector mode %q, defaulting to spectrum", cfg.Mode)
		params.Mode = detect.ModeSpectrum
	}

	switch cfg.Window {
	case "hamming":
		params.Window = detect.WindowHamming
	case "hann":
		params.Window = detect.WindowHann
	case "flat_top":
		params.Window = detect.WindowFlatTop
	case "none":
		params.Window = detect.WindowNone
	case "", "blackmann_harris":
		params.Window = detect.WindowBlackmannHarris
	}

	detect.SuggestAlpha(&params)

	return detect.New(params)
}

func serveMetrics(addr string) {
	log.Printf("specttunerd: prometheus metrics listening on %s", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("specttunerd: metrics server stopped: %v", err)
	}
}
