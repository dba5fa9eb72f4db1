package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagConfirm bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all indexed data from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requireStore(cfg); err != nil {
			return err
		}

		if !flagConfirm {
			return fmt.Errorf("this deletes every node, relationship, and embedding in %s\nRe-run with --confirm to proceed", cfg.StorePath)
		}

		svc, st, err := openService(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := svc.ClearAll(true)
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&flagConfirm, "confirm", false, "actually delete the data")
	rootCmd.AddCommand(clearCmd)
}
