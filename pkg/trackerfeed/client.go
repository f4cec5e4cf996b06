// Package trackerfeed ingests tracker estimates from the external vision
// pipeline over a websocket and hands the newest one to the follower
// manager. The feed runs at its own cadence; consumers always see only
// the latest update.
package trackerfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skylarkuav/go-follow/internal/log"
	"github.com/skylarkuav/go-follow/pkg/follow"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 5 * time.Second
	initialBackoff   = 500 * time.Millisecond
	maxBackoff       = 10 * time.Second
)

// Handler receives each decoded tracker output.
type Handler func(out follow.TrackerOutput)

// Client maintains a reconnecting websocket subscription to the tracker.
type Client struct {
	url     string
	handler Handler
}

// NewClient creates a feed client for the given websocket URL.
func NewClient(url string, handler Handler) *Client {
	return &Client{url: url, handler: handler}
}

// Run connects and consumes frames until the context is cancelled,
// reconnecting with exponential backoff on any failure. A dropped feed is
// not an error for the control loop: the manager's staleness deadline
// already treats silence as a lost target.
func (c *Client) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Warn("tracker feed disconnected", "url", c.url, "error", err, "retry_in", backoff.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial tracker: %w", err)
	}
	defer conn.Close()

	log.Info("tracker feed connected", "url", c.url)

	// Close the connection when the context ends so the blocked read
	// returns promptly.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read tracker frame: %w", err)
		}

		out, err := DecodeFrame(data)
		if err != nil {
			// A malformed frame is the tracker's bug, not a reason to
			// drop the connection.
			log.Warn("bad tracker frame", "error", err)
			continue
		}
		c.handler(out)
	}
}

// frame is the tracker's wire format for one estimate.
type frame struct {
	DataType       string      `json:"data_type"`
	Timestamp      float64     `json:"timestamp"`
	TrackingActive bool        `json:"tracking_active"`
	Confidence     float64     `json:"confidence"`
	Position2D     *[2]float64 `json:"position_2d,omitempty"`
	Position3D     *[3]float64 `json:"position_3d,omitempty"`
	BBox           *[4]float64 `json:"bbox,omitempty"`
	Angular        *[2]float64 `json:"angular,omitempty"`
}

// DecodeFrame parses one tracker JSON frame into a TrackerOutput,
// enforcing that the populated variant matches the declared data type.
func DecodeFrame(data []byte) (follow.TrackerOutput, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return follow.TrackerOutput{}, fmt.Errorf("decode tracker frame: %w", err)
	}

	switch f.DataType {
	case "POSITION_2D":
		if f.Position2D == nil {
			return follow.TrackerOutput{}, fmt.Errorf("POSITION_2D frame without position_2d")
		}
		return follow.NewPosition2DOutput(f.Timestamp, f.TrackingActive, f.Confidence,
			follow.Position2D{X: f.Position2D[0], Y: f.Position2D[1]}), nil
	case "POSITION_3D":
		if f.Position3D == nil {
			return follow.TrackerOutput{}, fmt.Errorf("POSITION_3D frame without position_3d")
		}
		return follow.NewPosition3DOutput(f.Timestamp, f.TrackingActive, f.Confidence,
			follow.Position3D{X: f.Position3D[0], Y: f.Position3D[1], Range: f.Position3D[2]}), nil
	case "BBOX":
		if f.BBox == nil {
			return follow.TrackerOutput{}, fmt.Errorf("BBOX frame without bbox")
		}
		return follow.NewBBoxOutput(f.Timestamp, f.TrackingActive, f.Confidence,
			follow.BBox{X: f.BBox[0], Y: f.BBox[1], Width: f.BBox[2], Height: f.BBox[3]}), nil
	case "ANGULAR":
		if f.Angular == nil {
			return follow.TrackerOutput{}, fmt.Errorf("ANGULAR frame without angular")
		}
		return follow.NewAngularOutput(f.Timestamp, f.TrackingActive, f.Confidence,
			follow.Angular{Yaw: f.Angular[0], Pitch: f.Angular[1]}), nil
	default:
		return follow.TrackerOutput{}, fmt.Errorf("unknown tracker data type %q", f.DataType)
	}
}
