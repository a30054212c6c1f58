package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetConfirm bool

var forgetCmd = &cobra.Command{
	Use:   "forget [memory-id]",
	Short: "Delete a memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Memory.Forget(args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

var forgetQueryCmd = &cobra.Command{
	Use:   "forget-query [query]",
	Short: "Delete every memory a query would return (requires --confirm)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Memory.ForgetByQuery(cmd.Context(), args[0], forgetConfirm)
		if err != nil {
			return err
		}
		fmt.Println("deleted", n, "memories")
		return nil
	},
}

func init() {
	forgetQueryCmd.Flags().BoolVar(&forgetConfirm, "confirm", false, "confirm deleting every matching memory")
	forgetCmd.AddCommand(forgetQueryCmd)
}
