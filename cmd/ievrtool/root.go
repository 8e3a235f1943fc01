package main

import (
	"github.com/spf13/cobra"
)

var logFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ievrtool",
		Short:         "Extract, decrypt, encrypt, and repack CPK archives",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&logFile, "log-file", "", "optional diagnostic log path (zstd-compressed)")

	root.AddCommand(newDumpCmd())
	root.AddCommand(newDecryptCmd())
	root.AddCommand(newEncryptCmd())
	root.AddCommand(newPackCmd())

	return root
}
