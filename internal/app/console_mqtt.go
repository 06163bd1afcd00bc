package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flight_recorder/internal/config"
)

// RunConsoleMQTT prints recorder session events until ctx is done.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is not configured")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicSession, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("console: event unmarshal error: %v", err)
			return
		}
		fmt.Println(formatEvent(ev))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSession)

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatEvent(ev Event) string {
	switch ev.Type {
	case EventStarted:
		if ev.Info == nil {
			break
		}
		line := fmt.Sprintf("[START] %s  at=%s", ev.Info.Name, ev.Info.StartedAt.Format(time.RFC3339))
		if ev.Fix != nil {
			line += fmt.Sprintf("  lat=%.6f lon=%.6f validity=%s", ev.Fix.Latitude, ev.Fix.Longitude, ev.Fix.Validity)
		}
		return line

	case EventStatus:
		if ev.Status == nil {
			break
		}
		s := ev.Status
		return fmt.Sprintf("[STAT]  tick=%7d  quiet=%6d  armed=%-5t  accel2=%8.2f  rate=%6.1fHz  overruns=%d",
			s.Tick, s.QuietTicks, s.Armed, s.AccelMagSq, s.AchievedRate(), s.Overruns)

	case EventEnded:
		if ev.Result == nil {
			break
		}
		r := ev.Result
		line := fmt.Sprintf("[END ]  %s  reason=%s  records=%d  duration=%.1fs",
			r.Name, r.Reason, r.Ticks, r.Duration.Seconds())
		if r.Error != "" {
			line += "  error=" + r.Error
		}
		return line
	}
	return fmt.Sprintf("[????]  %s", ev.Type)
}
