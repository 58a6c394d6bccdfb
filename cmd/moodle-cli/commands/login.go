package commands

import (
	"nile-backend/lib/configutil"
	"nile-backend/lib/scrapers/moodle/core"
	"nile-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in with the configured credentials and prints the resulting session.",
	Run: func(cmd *cobra.Command, args []string) {
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

		cookie, err := coreClient.Login(cmd.Context(), cfg.Username, cfg.Password)
		if err != nil {
			serviceutil.Fatal("failed to login to moodle", err)
		}
		fullName, err := coreClient.UserInfo(cmd.Context(), cookie)
		if err != nil {
			serviceutil.Fatal("failed to fetch user info", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Username", "Full Name", "Session Cookie"})
		t.AppendRow(table.Row{cfg.Username, fullName, cookie})
		t.Render()
	},
}
