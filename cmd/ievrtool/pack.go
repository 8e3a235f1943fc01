package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ievr/ievrtool/internal/catalog"
	"github.com/ievr/ievrtool/internal/cliutil"
)

func newPackCmd() *cobra.Command {
	var inputFolder, vanillaCpk string

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Rewrite a vanilla CPK's catalog to reflect replacement file sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(inputFolder, vanillaCpk)
		},
	}

	cmd.Flags().StringVar(&inputFolder, "input-folder", "", "folder of replacement files, laid out as they appear in the CPK")
	cmd.Flags().StringVar(&vanillaCpk, "vanilla-cpk", "", "the original CPK whose catalog entries are being resized")
	cmd.MarkFlagRequired("input-folder")
	cmd.MarkFlagRequired("vanilla-cpk")

	return cmd
}

func runPack(inputFolder, vanillaCpk string) error {
	inputFolder = cliutil.CleanPath(inputFolder)
	vanillaCpk = cliutil.CleanPath(vanillaCpk)

	if _, err := os.Stat(inputFolder); err != nil {
		return fmt.Errorf("input folder %s does not exist", inputFolder)
	}
	if _, err := os.Stat(vanillaCpk); err != nil {
		return fmt.Errorf("vanilla CPK %s does not exist", vanillaCpk)
	}

	cat, err := catalog.Load(vanillaCpk)
	if err != nil {
		return err
	}

	if err := cat.ApplyFolder(inputFolder); err != nil {
		return err
	}

	out := filepath.Join(inputFolder, "cpk_list.cfg.bin")
	return cat.WriteEncrypted(out)
}
