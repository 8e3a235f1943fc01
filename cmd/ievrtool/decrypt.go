package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ievr/ievrtool/internal/cliutil"
	"github.com/ievr/ievrtool/internal/cpkcrypt"
)

func newDecryptCmd() *cobra.Command {
	var inputFile, outputFile string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a single CPK file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecrypt(inputFile, outputFile)
		},
	}

	cmd.Flags().StringVar(&inputFile, "input-file", "", "CPK file to decrypt")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "destination file (default decrypted/<basename>)")
	cmd.MarkFlagRequired("input-file")

	return cmd
}

func runDecrypt(inputFile, outputFile string) error {
	inputFile = cliutil.CleanPath(inputFile)
	if _, err := os.Stat(inputFile); err != nil {
		return fmt.Errorf("input file %s does not exist", inputFile)
	}

	if outputFile == "" {
		outputFile = filepath.Join("decrypted", filepath.Base(inputFile))
	} else {
		outputFile = cliutil.CleanPath(outputFile)
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return err
	}

	return cpkcrypt.New(inputFile).DecryptToFile(outputFile)
}
