package outbox

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeWireFormat(t *testing.T) {
	payload := []byte(`{"checkin_id":"ci-1"}`)
	frame := encodeWireFormat(1234, payload)

	require.Len(t, frame, 5+len(payload))
	require.Equal(t, byte(0), frame[0])
	require.Equal(t, uint32(1234), binary.BigEndian.Uint32(frame[1:5]))
	require.Equal(t, payload, frame[5:])
}

func TestSchemaCatalogCoversAllEventTypes(t *testing.T) {
	for _, eventType := range []string{"checkin.recorded", "milestone.reached", "challenge.created", "challenge.abandoned", "challenge.completed"} {
		entry, ok := schemaCatalog[eventType]
		require.True(t, ok, "missing schema for %s", eventType)
		require.NotEmpty(t, entry.Schema)
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	manager := NewDLQManager(nil, 5, time.Minute)

	require.Equal(t, time.Minute, manager.backoffDelay(1))
	require.Equal(t, 2*time.Minute, manager.backoffDelay(2))
	require.Equal(t, 4*time.Minute, manager.backoffDelay(3))
	require.Equal(t, 32*time.Minute, manager.backoffDelay(6))
	require.Equal(t, time.Hour, manager.backoffDelay(7))
	require.Equal(t, time.Hour, manager.backoffDelay(20))
}

func TestNewDLQManagerDefaults(t *testing.T) {
	manager := NewDLQManager(nil, 0, 0)

	require.Equal(t, 5, manager.maxRetries)
	require.Equal(t, time.Minute, manager.baseDelay)
}
