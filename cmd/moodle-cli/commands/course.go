package commands

import (
	"fmt"
	"strconv"

	"nile-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(courseCmd)
}

var courseCmd = &cobra.Command{
	Use:   "course <id>",
	Short: "Prints the full section/activity structure of one course.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		courseId, err := strconv.Atoi(args[0])
		if err != nil {
			serviceutil.Fatal("course id must be a number", err)
		}
		client := createClient(cmd.Context())

		full, err := client.CourseFull(cmd.Context(), courseId)
		if err != nil {
			serviceutil.Fatal("failed to scrape course", err)
		}

		fmt.Printf(
			"tabs: %v\nsections: %d, activities: %d\n",
			full.Tabs, full.TotalSections, full.TotalActivities,
		)

		t := newTable()
		t.AppendHeader(table.Row{"Section", "Activity", "Type", "Url"})
		for _, a := range full.Intro.Activities {
			t.AppendRow(table.Row{full.Intro.Name, a.Name, a.ModType, a.Url})
		}
		for _, s := range full.Sections {
			if len(s.Activities) == 0 {
				t.AppendRow(table.Row{s.Name, "", "", ""})
				continue
			}
			for _, a := range s.Activities {
				t.AppendRow(table.Row{s.Name, a.Name, a.ModType, a.Url})
			}
		}
		t.Render()
	},
}
