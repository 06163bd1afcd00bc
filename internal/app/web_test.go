package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/flight_recorder/internal/imu"
	"github.com/relabs-tech/flight_recorder/internal/motion"
	"github.com/relabs-tech/flight_recorder/internal/record"
	"github.com/relabs-tech/flight_recorder/internal/sensors"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

func quickParams() session.Params {
	return session.Params{
		Period:      time.Millisecond,
		GraceTicks:  0,
		CapTicks:    1000,
		StatusEvery: 2,
		Thresholds: motion.Thresholds{
			StillAccel: 12,
			StillGyro:  1,
			StopTicks:  5,
			Penalty:    10,
		},
	}
}

func stillSource() *sensors.FuncSource {
	return sensors.NewFuncSource(func(i int) (imu.Reading, error) {
		return imu.Reading{
			ElapsedMicros: int64(i) * 1000,
			Accel:         imu.Vec3{Z: 9.81},
			Temperature:   21.5,
		}, nil
	})
}

func newTestServer(t *testing.T, listener session.Listener) (*CommandServer, *session.Controller, *record.DirSink) {
	t.Helper()
	sink := record.NewDirSink(t.TempDir(), "session-", "", 0)
	sched := session.NewScheduler(quickParams(), stillSource(), sink, nil, listener)
	ctrl := session.NewController(sched)

	webRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webRoot, "index.html"), []byte("<html>recorder</html>"), 0o644))

	return NewCommandServer("127.0.0.1:0", webRoot, ctrl, sink, NewHub()), ctrl, sink
}

func TestStartLog_AcceptsThenRejects(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/startLog", "text/plain", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	// controller loop is not running, so the first request stays pending
	resp, err = http.Post(ts.URL+"/startLog", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStartLog_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/startLog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCommandServer_SessionRoundTrip(t *testing.T) {
	srv, ctrl, _ := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ended := make(chan session.Result, 1)
	ctrl.AfterSession = func(res session.Result, _ error) { ended <- res }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	resp, err := http.Post(ts.URL+"/startLog", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res session.Result
	select {
	case res = <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
	assert.Equal(t, session.ReasonStill, res.Reason)

	resp, err = http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	var files []record.SessionFile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&files))
	resp.Body.Close()
	require.Len(t, files, 1)
	assert.Equal(t, "session-1", files[0].Name)

	resp, err = http.Get(ts.URL + "/sessions/session-1")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, res.Ticks, len(lines))

	resp, err = http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	var st struct {
		State string `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, "idle", st.State)
}

func TestCommandServer_StaticRoot(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "recorder")
}

func TestCommandServer_StartStopRestart(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	require.NoError(t, srv.Start())
	addr := srv.Addr()
	require.NotEmpty(t, addr)
	require.NoError(t, srv.Start())
	assert.Equal(t, addr, srv.Addr())

	resp, err := http.Get("http://" + addr + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Stop(ctx))

	require.NoError(t, srv.Start())
	defer srv.Stop(ctx)
	assert.NotEmpty(t, srv.Addr())
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Handle(Event{Type: EventStatus, Status: &session.Status{Tick: 40, QuietTicks: 3}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventStatus, ev.Type)
	require.NotNil(t, ev.Status)
	assert.Equal(t, 40, ev.Status.Tick)
	assert.Equal(t, 3, ev.Status.QuietTicks)
}
