package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/matrix"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List experiment categories and their cells",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			for _, cat := range matrix.Categories(cfg.Experiment) {
				fmt.Printf("%s:\n", cat.Name)
				for _, id := range cat.Members {
					fmt.Printf("  - %s\n", id)
				}
			}
			return nil
		},
	}
}
