package app

import (
	"fmt"
	"io"
	"os"

	"github.com/relabs-tech/flight_recorder/internal/imu"
	"github.com/relabs-tech/flight_recorder/internal/motion"
	"github.com/relabs-tech/flight_recorder/internal/record"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

// ReplayReport is the offline verdict of the stillness detector over a
// recorded session.
type ReplayReport struct {
	Records     int
	StopRecord  int // 1-based record at which the detector fires, 0 if never
	StopMicros  int64
	MaxQuiet    int
	StillShare  float64 // fraction of records under both thresholds
	LastElapsed int64
}

// Replay feeds a recorded session through a fresh detector using the
// same arming rule as a live session.
func Replay(r io.Reader, p session.Params) (ReplayReport, error) {
	var rep ReplayReport
	det := motion.NewDetector(p.Thresholds)
	still := 0

	err := record.ReadSession(r, func(rd imu.Reading) error {
		if rep.Records >= p.GraceTicks && !det.Armed() {
			det.Arm()
		}
		if det.IsStill(rd) {
			still++
		}
		stop := det.Observe(rd)
		rep.Records++
		rep.LastElapsed = rd.ElapsedMicros
		if q := det.QuietTicks(); q > rep.MaxQuiet {
			rep.MaxQuiet = q
		}
		if stop && rep.StopRecord == 0 {
			rep.StopRecord = rep.Records
			rep.StopMicros = rd.ElapsedMicros
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	if rep.Records > 0 {
		rep.StillShare = float64(still) / float64(rep.Records)
	}
	return rep, nil
}

// ReplayFile runs Replay over the session file at path.
func ReplayFile(path string, p session.Params) (ReplayReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()
	return Replay(f, p)
}
