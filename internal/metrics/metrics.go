// Package metrics exposes Prometheus collectors for the detector/tuner
// daemon: per-channel detection gauges plus host CPU/memory gauges.
// Grounded on the teacher's prometheus.go promauto registration style.
package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics holds all Prometheus collectors the daemon registers.
type Metrics struct {
	channelsActive  prometheus.Gauge
	channelSNR      *prometheus.GaugeVec
	channelBW       *prometheus.GaugeVec
	noiseFloor      prometheus.Gauge
	baudEstimate    prometheus.Gauge
	tunerSamples    prometheus.Counter
	fftWindows      prometheus.Counter
	callbackDropped prometheus.Counter

	hostCPUPercent prometheus.Gauge
	hostMemPercent prometheus.Gauge

	mu sync.RWMutex
}

// New creates and registers the daemon's metrics against the default
// Prometheus registry.
func New() *Metrics {
	return &Metrics{
		channelsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "specttunerd_channels_active",
			Help: "Number of channels currently tracked by the detector.",
		}),
		channelSNR: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "specttunerd_channel_snr_db",
				Help: "Per-channel SNR estimate in dB, keyed by channel id.",
			},
			[]string{"channel"},
		),
		channelBW: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "specttunerd_channel_bandwidth_hz",
				Help: "Per-channel bandwidth estimate in Hz, keyed by channel id.",
			},
			[]string{"channel"},
		),
		noiseFloor: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "specttunerd_noise_floor_db",
			Help: "Current noise floor estimate (N0) in dB.",
		}),
		baudEstimate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "specttunerd_baud_estimate",
			Help: "Most recent baud-rate estimate, symbols/sec.",
		}),
		tunerSamples: promauto.NewCounter(prometheus.CounterOpts{
			Name: "specttunerd_tuner_samples_total",
			Help: "Total input samples fed to the spectral tuner.",
		}),
		fftWindows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "specttunerd_fft_windows_total",
			Help: "Total completed FFT windows processed by the detector.",
		}),
		callbackDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "specttunerd_channel_callback_rejected_total",
			Help: "Number of times a channel's OnData callback returned false.",
		}),
		hostCPUPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "specttunerd_host_cpu_percent",
			Help: "Host CPU utilization percentage.",
		}),
		hostMemPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "specttunerd_host_mem_percent",
			Help: "Host memory utilization percentage.",
		}),
	}
}

// SetChannelCount records how many channels the detector currently tracks.
func (m *Metrics) SetChannelCount(n int) {
	m.channelsActive.Set(float64(n))
}

// SetChannel records SNR/bandwidth for one tracked channel.
func (m *Metrics) SetChannel(id string, snrDB, bwHz float64) {
	m.channelSNR.WithLabelValues(id).Set(snrDB)
	m.channelBW.WithLabelValues(id).Set(bwHz)
}

// SetNoiseFloor records the detector's current N0 estimate.
func (m *Metrics) SetNoiseFloor(n0DB float64) {
	m.noiseFloor.Set(n0DB)
}

// SetBaud records the most recent baud-rate estimate.
func (m *Metrics) SetBaud(baud float64) {
	m.baudEstimate.Set(baud)
}

// AddTunerSamples increments the tuner's input sample counter.
func (m *Metrics) AddTunerSamples(n int) {
	m.tunerSamples.Add(float64(n))
}

// IncFFTWindows increments the completed-FFT-window counter.
func (m *Metrics) IncFFTWindows() {
	m.fftWindows.Inc()
}

// IncCallbackRejected increments the dropped-channel-callback counter.
func (m *Metrics) IncCallbackRejected() {
	m.callbackDropped.Inc()
}

// StartHostSampler launches a goroutine that samples host CPU/memory
// utilization every interval until ctx is canceled, grounded on the
// teacher's own health-endpoint gopsutil use.
func (m *Metrics) StartHostSampler(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleHost()
			}
		}
	}()
}

func (m *Metrics) sampleHost() {
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		m.hostCPUPercent.Set(pct[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		m.hostMemPercent.Set(vm.UsedPercent)
	}
	runtime.Gosched()
}
