// The epchat command runs the chat server and its companion tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ConfigFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "epchat",
		Short: "epoll based chat server and related tools",
		RunE:  ServerCommand,

		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", "", "Path to the server config/data directory")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountDeleteCmd)
	accountCmd.AddCommand(accountBanCmd)
	accountCmd.AddCommand(accountListCmd)
	accountDeleteCmd.Flags().BoolVar(&PermanentFlag, "permanent", false, "Permanently delete the account (as opposed to a soft delete)")
	accountBanCmd.Flags().BoolVar(&LiftFlag, "lift", false, "Lift an existing ban instead of banning")

	connectCmd.Flags().StringVarP(&AddressFlag, "addr", "a", "127.0.0.1:8000", "Address of the chat server")

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(connectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
