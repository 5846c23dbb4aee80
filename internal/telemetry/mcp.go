package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ChannelSnapshot is the read-only view of one tracked channel an MCP tool
// call returns.
type ChannelSnapshot struct {
	ID  string  `json:"id"`
	Fc  float64 `json:"fc_hz"`
	BW  float64 `json:"bw_hz"`
	SNR float64 `json:"snr_db"`
	Age uint    `json:"age"`
}

// DetectorView is the read-only slice of detector state the MCP server
// queries on each tool call; cmd/specttunerd supplies the live
// implementation backed by a *detect.Detector.
type DetectorView interface {
	Channels() []ChannelSnapshot
	NoiseFloorDB() float64
	Baud() float64
}

// Server exposes a detector's live state as MCP tools, grounded on the
// teacher's mcp_server.go registration pattern (one mcp.NewTool per
// capability, a thin handler translating args into a monitor query).
type Server struct {
	view       DetectorView
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// NewServer builds an MCP server surfacing view's channel list and
// detector statistics as tools.
func NewServer(view DetectorView) *Server {
	s := &Server{view: view}

	s.mcpServer = server.NewMCPServer(
		"specttunerd",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)

	return s
}

// Handler returns the HTTP handler to mount the MCP tool surface on.
func (s *Server) Handler() *server.StreamableHTTPServer {
	return s.httpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_channels",
			mcp.WithDescription("List the channels currently tracked by the spectral detector, with center frequency, bandwidth, SNR and age. Use this to see what's currently occupying the spectrum."),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for a human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handleListChannels,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_spectrum",
			mcp.WithDescription("Get the detector's current noise floor estimate (N0, dB) and most recent baud-rate estimate. Use this to assess current band conditions."),
		),
		s.handleGetSpectrum,
	)
}

func (s *Server) handleListChannels(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", "json")

	channels := s.view.Channels()
	if len(channels) == 0 {
		return mcp.NewToolResultError("no channels currently tracked"), nil
	}

	if format == "text" {
		text := "Tracked channels:\n\n"
		for _, ch := range channels {
			text += fmt.Sprintf("Channel %s:\n  Fc: %.1f Hz\n  BW: %.1f Hz\n  SNR: %.1f dB\n  Age: %d\n\n",
				ch.ID, ch.Fc, ch.BW, ch.SNR, ch.Age)
		}
		return mcp.NewToolResultText(text), nil
	}

	data, err := json.MarshalIndent(channels, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal channels: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetSpectrum(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(struct {
		NoiseFloorDB float64 `json:"noise_floor_db"`
		Baud         float64 `json:"baud"`
	}{
		NoiseFloorDB: s.view.NoiseFloorDB(),
		Baud:         s.view.Baud(),
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal spectrum state: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
