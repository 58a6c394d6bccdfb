package commands

import (
	"context"
	"fmt"
	"os"

	"nile-backend/lib/configutil"
	"nile-backend/lib/scrapers/moodle/core"
	"nile-backend/lib/scrapers/moodle/view"
	"nile-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "moodle-cli",
	Short: "moodle-cli scrapes a moodle instance directly, for validating selectors against a live site.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	BaseUrl  string `json:"baseurl"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func createClient(ctx context.Context) view.Client {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	coreClient, err := core.NewClient(core.ClientOptions{
		BaseUrl: cfg.BaseUrl,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize core moodle client", err)
	}

	cookie, err := coreClient.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		serviceutil.Fatal("failed to login to moodle", err)
	}
	return view.NewClient(coreClient, cookie)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
