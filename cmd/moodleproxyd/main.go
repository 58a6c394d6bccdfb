package main

import (
	"nile-backend/lib/configutil"
	"nile-backend/lib/scrapers/moodle/core"
	"nile-backend/lib/serviceutil"
	"nile-backend/lib/telemetry"
	"nile-backend/services/moodleproxy"
)

type Config struct {
	MoodleBaseUrl string `json:"moodle_baseurl"`
	Port          int    `json:"port"`
	Verbose       bool   `json:"verbose"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to load configuration", err)
	}
	if config.Port == 0 {
		config.Port = 9320
	}

	tel, err := telemetry.SetupFromEnv(ctx, "moodleproxyd")
	if err != nil {
		serviceutil.Fatal("failed to initialize telemetry", err)
	}
	defer tel.Shutdown(ctx)
	telemetry.InitSlog(config.Verbose)
	telemetry.InstrumentPerfStats(ctx)

	client, err := core.NewClient(core.ClientOptions{
		BaseUrl: config.MoodleBaseUrl,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize moodle client", err)
	}

	service := moodleproxy.NewService(client)
	go serviceutil.StartHttpServer(config.Port, service.Router())

	<-ctx.Done()
}
