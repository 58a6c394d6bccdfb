package commands

import (
	"nile-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Prints the courses on the configured user's dashboard.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		courses, err := client.Courses(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to scrape courses", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Fullname", "Shortname", "Url"})
		for _, c := range courses {
			t.AppendRow(table.Row{c.Id, c.Fullname, c.Shortname, c.Url})
		}
		t.Render()
	},
}
