package record

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/flight_recorder/internal/imu"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestDirSink_BeginSession_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir, "session-", "", 0)

	h, err := sink.BeginSession()
	require.NoError(t, err)
	defer sink.EndSession(h)

	assert.Equal(t, 1, h.Index)
	assert.Equal(t, "session-1", h.Name)
	assert.FileExists(t, filepath.Join(dir, "session-1"))
}

func TestDirSink_BeginSession_AfterExisting(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"session-1", "session-2", "session-3"} {
		touch(t, dir, n)
	}
	sink := NewDirSink(dir, "session-", "", 0)

	h, err := sink.BeginSession()
	require.NoError(t, err)
	defer sink.EndSession(h)
	assert.Equal(t, 4, h.Index)
}

func TestDirSink_BeginSession_GapNeverReusesName(t *testing.T) {
	dir := t.TempDir()
	// session-2 was deleted; count+1 alone would collide with session-3.
	touch(t, dir, "session-1")
	touch(t, dir, "session-3")
	sink := NewDirSink(dir, "session-", "", 0)

	h, err := sink.BeginSession()
	require.NoError(t, err)
	defer sink.EndSession(h)
	assert.Equal(t, 4, h.Index)
}

func TestDirSink_BeginSession_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tests")
	sink := NewDirSink(dir, "session-", ".txt", 0)

	h, err := sink.BeginSession()
	require.NoError(t, err)
	require.NoError(t, sink.EndSession(h))
	assert.FileExists(t, filepath.Join(dir, "session-1.txt"))
}

func TestDirSink_BeginSession_UnreadableDir(t *testing.T) {
	// a regular file where the directory should be
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	sink := NewDirSink(path, "session-", "", 0)

	_, err := sink.BeginSession()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageFault)
}

func TestDirSink_AppendAndEnd(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir, "session-", "", 2)

	h, err := sink.BeginSession()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		r := imu.Reading{ElapsedMicros: int64(i) * 3846, Accel: imu.Vec3{Z: 9.81}, Temperature: 24.5}
		require.NoError(t, sink.Append(h, r))
	}
	assert.Equal(t, 5, h.Records())
	require.NoError(t, sink.EndSession(h))

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "3846, 0.00, 0.00, 9.81, 0.00, 0.00, 0.00, 24.50", lines[1])
}

func TestDirSink_EndSessionTwice(t *testing.T) {
	sink := NewDirSink(t.TempDir(), "session-", "", 0)
	h, err := sink.BeginSession()
	require.NoError(t, err)

	require.NoError(t, sink.EndSession(h))
	assert.ErrorIs(t, sink.EndSession(h), ErrHandleClosed)
	assert.ErrorIs(t, sink.Append(h, imu.Reading{}), ErrHandleClosed)
}

func TestDirSink_List(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "session-10")
	touch(t, dir, "session-2")
	touch(t, dir, "index.html")
	sink := NewDirSink(dir, "session-", "", 0)

	files, err := sink.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 2, files[0].Index)
	assert.Equal(t, "session-10", files[1].Name)
}
