package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/decision"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 6, 12, 9, 30, 0, 0, time.UTC)
	report := decision.Report{
		ID:          "rep-1",
		GeneratedAt: now,
		RainMM:      80,
		Classifier:  "fixed",
		Raster: decision.RasterStats{
			TotalPixels: 100,
			High:        decision.ClassStats{Pixels: 12, Pct: 12},
		},
		NoRouteReason: "no reachable safe zone",
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("rep-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"rain_mm":80`)
	assert.Contains(t, string(msg.Value), `"no_route_reason":"no reachable safe zone"`)
	assert.NotContains(t, string(msg.Value), `"route"`, "nil route is omitted")

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "classifier", msg.Headers[0].Key)
	assert.Equal(t, []byte("fixed"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessageWithRoute(t *testing.T) {
	report := decision.Report{
		ID:          "rep-2",
		GeneratedAt: time.Now(),
		Classifier:  "adaptive",
		Route: &decision.RouteSummary{
			Waypoints:      5,
			LengthM:        4480,
			DestinationLat: 0.095,
			DestinationLon: 0.085,
			DestinationFSI: 0.21,
		},
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"waypoints":5`)

	var header *kafkago.Header
	for i := range msg.Headers {
		if msg.Headers[i].Key == "classifier" {
			header = &msg.Headers[i]
		}
	}
	require.NotNil(t, header)
	assert.Equal(t, []byte("adaptive"), header.Value)
}
