package export

import (
	"fmt"

	"github.com/spf13/cobra"

	"douyin-scribe/internal/app"
	"douyin-scribe/internal/app/export"
)

var outputFilePath string

func init() {
	Cmd.Flags().StringVarP(&outputFilePath, "outputFilePath", "o", "history.xlsx", "set outputFilePath")
}

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export the processing history to excel",
	Long:  `Export the processing history to excel, newest entries first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dao, cleanup, err := app.ProvideHistoryDAO()
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := dao.GetAll()
		if err != nil {
			return err
		}
		if err := export.ToExcel(records, outputFilePath); err != nil {
			return err
		}
		fmt.Printf("export finished, %d records written to %v\n", len(records), outputFilePath)
		return nil
	},
}
