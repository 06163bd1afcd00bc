package session

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/flight_recorder/internal/config"
	"github.com/relabs-tech/flight_recorder/internal/imu"
	"github.com/relabs-tech/flight_recorder/internal/record"
)

// fakeClock only advances when the scheduler sleeps or a test moves it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps++
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingListener keeps every event it sees.
type recordingListener struct {
	mu       sync.Mutex
	started  []Info
	statuses []Status
	ended    []Result
}

func (l *recordingListener) SessionStarted(i Info) {
	l.mu.Lock()
	l.started = append(l.started, i)
	l.mu.Unlock()
}

func (l *recordingListener) SessionStatus(s Status) {
	l.mu.Lock()
	l.statuses = append(l.statuses, s)
	l.mu.Unlock()
}

func (l *recordingListener) SessionEnded(r Result) {
	l.mu.Lock()
	l.ended = append(l.ended, r)
	l.mu.Unlock()
}

// faultSink fails the append with index failAt.
type faultSink struct {
	*record.DirSink
	failAt int
	calls  int
}

func (f *faultSink) Append(h *record.Handle, r imu.Reading) error {
	if f.calls == f.failAt {
		return record.ErrStorageFault
	}
	f.calls++
	return f.DirSink.Append(h, r)
}

// constSource returns the same reading on every call.
type constSource struct {
	r imu.Reading
}

func (s constSource) Read() (imu.Reading, error) { return s.r, nil }

var (
	stillReading  = imu.Reading{Accel: imu.Vec3{Z: 9.8}, Temperature: 21}
	movingReading = imu.Reading{Accel: imu.Vec3{X: 14, Z: 9.8}, Gyro: imu.Vec3{X: 3}, Temperature: 21}
)

func defaultParams() Params {
	return ParamsFromConfig(config.Default())
}

func newTestSink(t *testing.T) *record.DirSink {
	t.Helper()
	return record.NewDirSink(t.TempDir(), "session-", "", 0)
}

func countRecords(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return bytes.Count(data, []byte{'\n'})
}
