package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrics-monitor/internal/domain"
)

type receivedReport struct {
	Type    string        `json:"type"`
	Payload domain.Report `json:"payload"`
}

func readReport(t *testing.T, conn *websocket.Conn) receivedReport {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg receivedReport
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubSendsLatestThenBroadcasts(t *testing.T) {
	hub, url := startHub(t)

	hub.Publish(domain.Report{System: domain.SystemSample{CPUPercent: 11}})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readReport(t, conn)
	assert.Equal(t, "report", first.Type)
	assert.Equal(t, 11.0, first.Payload.System.CPUPercent)

	hub.Publish(domain.Report{System: domain.SystemSample{CPUPercent: 22}, Stored: true})
	second := readReport(t, conn)
	assert.Equal(t, 22.0, second.Payload.System.CPUPercent)
	assert.True(t, second.Payload.Stored)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubFansOutToAllClients(t *testing.T) {
	hub, url := startHub(t)
	hub.Publish(domain.Report{})

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()
		readReport(t, conn)
		conns = append(conns, conn)
	}

	hub.Publish(domain.Report{System: domain.SystemSample{ThreadCount: 99}})
	for _, conn := range conns {
		assert.Equal(t, 99.0, readReport(t, conn).Payload.System.ThreadCount)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url := startHub(t)
	hub.Publish(domain.Report{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readReport(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestPublishNeverBlocksWithoutRun(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Publish(domain.Report{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked with no hub running")
	}
}
