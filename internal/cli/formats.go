package cli

import (
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/lognorm/internal/model"
)

var formatDescriptions = map[model.Format]string{
	model.FormatJSON:    "one JSON object per line",
	model.FormatCSV:     "comma-separated rows after a header line",
	model.FormatWeb:     "Apache combined / common access log",
	model.FormatGeneric: "free-form text, fields found by pattern",
}

type formatInfo struct {
	Name        model.Format `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
}

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported input formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := make([]formatInfo, 0, len(model.Formats))
			for _, f := range model.Formats {
				infos = append(infos, formatInfo{Name: f, Description: formatDescriptions[f]})
			}

			return a.printer.Value(infos, func() {
				table := a.printer.NewTable("FORMAT", "DESCRIPTION")
				for _, info := range infos {
					table.AddRow(string(info.Name), info.Description)
				}
				table.Render()
			})
		},
	}
}
