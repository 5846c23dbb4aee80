package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/cwsl/specttunerd/detect"
	"github.com/cwsl/specttunerd/internal/config"
	"github.com/cwsl/specttunerd/internal/metrics"
	"github.com/cwsl/specttunerd/internal/telemetry"
	"github.com/cwsl/specttunerd/sampling"
	"github.com/cwsl/specttunerd/specttuner"
)

// frame is the periodic payload pushed to every websocket client: the
// detector's current spectrum and tracked channel list.
type frame struct {
	Timestamp int64     `json:"timestamp"`
	Spectrum  []float64 `json:"spectrum,omitempty"`
	Channels  []channelJSON `json:"channels"`
	NoiseFloorDB float64  `json:"noise_floor_db"`
	Baud         float64  `json:"baud"`
}

type channelJSON struct {
	ID  string  `json:"id"`
	Fc  float64 `json:"fc_hz"`
	BW  float64 `json:"bw_hz"`
	SNR float64 `json:"snr_db"`
	Age uint    `json:"age"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamHub pushes detector frames to connected websocket clients,
// grounded on the teacher's websocket.go upgrade/write-pump pattern, and
// publishes channel asserts/evictions to MQTT and Prometheus. It also
// implements telemetry.DetectorView so the MCP server can query the same
// live state.
type streamHub struct {
	cfg    config.WebsocketConfig
	tuner  *specttuner.Specttuner
	det    *detect.Detector
	met    *metrics.Metrics
	mqtt   *telemetry.Publisher

	zstdEncoder *zstd.Encoder

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	lastChannelIDs map[string]bool
}

func newStreamHub(cfg config.WebsocketConfig, tuner *specttuner.Specttuner, det *detect.Detector, met *metrics.Metrics, mqtt *telemetry.Publisher) *streamHub {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return &streamHub{
		cfg:            cfg,
		tuner:          tuner,
		det:            det,
		met:            met,
		mqtt:           mqtt,
		zstdEncoder:    enc,
		clients:        make(map[*websocket.Conn]struct{}),
		lastChannelIDs: make(map[string]bool),
	}
}

func (h *streamHub) run(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc(h.cfg.Path, h.handleWS)

	server := &http.Server{Addr: h.cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("specttunerd: websocket feed listening on %s%s", h.cfg.ListenAddr, h.cfg.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("specttunerd: websocket server stopped: %v", err)
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			server.Close()
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *streamHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("specttunerd: websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *streamHub) broadcast() {
	f := h.snapshot()
	h.notifyChannelChanges(f.Channels)

	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("specttunerd: marshaling frame: %v", err)
		return
	}

	payload := data
	if h.cfg.CompressFrames {
		payload = h.zstdEncoder.EncodeAll(data, nil)
	}
	msgType := websocket.TextMessage
	if h.cfg.CompressFrames {
		msgType = websocket.BinaryMessage
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(msgType, payload); err != nil {
			log.Printf("specttunerd: dropping websocket client: %v", err)
		}
	}
}

func (h *streamHub) snapshot() frame {
	channels := h.det.Channels()
	out := make([]channelJSON, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelJSON{
			ID:  ch.ID.String(),
			Fc:  float64(ch.Fc),
			BW:  float64(ch.BW),
			SNR: float64(ch.SNR),
			Age: ch.Age,
		})
	}

	n0DB := float64(sampling.PowerDB(h.det.N0()))
	h.met.SetChannelCount(len(out))
	h.met.SetNoiseFloor(n0DB)
	h.met.SetBaud(float64(h.det.Baud()))
	for _, ch := range out {
		h.met.SetChannel(ch.ID, ch.SNR, ch.BW)
	}

	spec := h.det.Spectrum(nil)
	specF64 := make([]float64, len(spec))
	for i, v := range spec {
		specF64[i] = float64(v)
	}

	return frame{
		Timestamp:    time.Now().UnixMilli(),
		Spectrum:     specF64,
		Channels:     out,
		NoiseFloorDB: n0DB,
		Baud:         float64(h.det.Baud()),
	}
}

// notifyChannelChanges diffs the current channel id set against the
// previous broadcast and publishes assert/evict events over MQTT.
func (h *streamHub) notifyChannelChanges(current []channelJSON) {
	if h.mqtt == nil {
		return
	}

	seen := make(map[string]bool, len(current))
	for _, ch := range current {
		seen[ch.ID] = true
		if !h.lastChannelIDs[ch.ID] {
			h.mqtt.Publish(telemetry.ChannelEvent{
				Timestamp: time.Now().Unix(),
				Kind:      "asserted",
				ID:        ch.ID,
				Fc:        ch.Fc,
				BW:        ch.BW,
				SNR:       ch.SNR,
				Age:       ch.Age,
			})
		}
	}
	for id := range h.lastChannelIDs {
		if !seen[id] {
			h.mqtt.Publish(telemetry.ChannelEvent{
				Timestamp: time.Now().Unix(),
				Kind:      "evicted",
				ID:        id,
			})
		}
	}
	h.lastChannelIDs = seen
}

// Channels implements telemetry.DetectorView.
func (h *streamHub) Channels() []telemetry.ChannelSnapshot {
	channels := h.det.Channels()
	out := make([]telemetry.ChannelSnapshot, 0, len(channels))
	for _, ch := range channels {
		out = append(out, telemetry.ChannelSnapshot{
			ID:  ch.ID.String(),
			Fc:  float64(ch.Fc),
			BW:  float64(ch.BW),
			SNR: float64(ch.SNR),
			Age: ch.Age,
		})
	}
	return out
}

// NoiseFloorDB implements telemetry.DetectorView.
func (h *streamHub) NoiseFloorDB() float64 {
	return float64(sampling.PowerDB(h.det.N0()))
}

// Baud implements telemetry.DetectorView.
func (h *streamHub) Baud() float64 {
	return float64(h.det.Baud())
}
