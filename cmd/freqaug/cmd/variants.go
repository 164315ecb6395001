package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/freqaug/internal/augment"
)

type variantRow struct {
	Name        string   `json:"name"`
	Family      string   `json:"family"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

func newVariantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "List the available augmentation variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			family, _ := cmd.Flags().GetString("family")
			asJSON, _ := cmd.Flags().GetBool("json")

			rows := variantRows(family)
			if len(rows) == 0 {
				return fmt.Errorf("no variants in family %q", family)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), variantTable(rows))
			return err
		},
	}
	cmd.Flags().String("family", "", "only list one family (spatial, mask, mix)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func variantRows(family string) []variantRow {
	family = strings.ToLower(strings.TrimSpace(family))
	var rows []variantRow
	for _, v := range augment.Variants() {
		if family != "" && v.Family().String() != family {
			continue
		}
		rows = append(rows, variantRow{
			Name:        v.String(),
			Family:      v.Family().String(),
			Description: v.Description(),
			Aliases:     v.Aliases(),
		})
	}
	return rows
}

func variantTable(rows []variantRow) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Variant", "Family", "Description", "Aliases")
	for _, r := range rows {
		table.Row(r.Name, r.Family, r.Description, strings.Join(r.Aliases, ", "))
	}
	return table.Render()
}
