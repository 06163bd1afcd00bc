package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/flight_recorder/internal/app"
	"github.com/relabs-tech/flight_recorder/internal/config"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

func main() {
	configPath := flag.String("config", "", "optional config file for thresholds and rate")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: replay [-config file] session-file...")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	params := session.ParamsFromConfig(cfg)

	for _, path := range flag.Args() {
		rep, err := app.ReplayFile(path, params)
		if err != nil {
			log.Printf("%s: %v", path, err)
			continue
		}

		fmt.Printf("%s: %d records, last at %s, still %.1f%%, max quiet %d/%d\n",
			path, rep.Records, time.Duration(rep.LastElapsed)*time.Microsecond,
			100*rep.StillShare, rep.MaxQuiet, params.Thresholds.StopTicks)
		if rep.StopRecord > 0 {
			fmt.Printf("  detector stops at record %d (%s)\n",
				rep.StopRecord, time.Duration(rep.StopMicros)*time.Microsecond)
		} else {
			fmt.Println("  detector never stops")
		}
	}
}
