package main

import (
	"context"

	"nile-backend/cmd/moodle-cli/commands"
	"nile-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "moodle-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
