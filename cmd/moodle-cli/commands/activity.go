package commands

import (
	"encoding/json"
	"fmt"

	"nile-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(activityCmd)
}

var activityCmd = &cobra.Command{
	Use:   "activity <url> <modtype>",
	Short: "Scrapes one activity page and prints its extracted content as JSON.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		content, err := client.ActivityContent(cmd.Context(), args[0], args[1])
		if err != nil {
			serviceutil.Fatal("failed to scrape activity", err)
		}

		out, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to encode content", err)
		}
		fmt.Println(string(out))
	},
}
