package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ievr/ievrtool/internal/cfgdb"
	"github.com/ievr/ievrtool/internal/cliutil"
	"github.com/ievr/ievrtool/internal/pipeline"
	"github.com/ievr/ievrtool/internal/rules"
)

func newDumpCmd() *cobra.Command {
	var (
		inputFolder  string
		outputFolder string
		threads      int
		memoryGiB    float64
		rulesFile    string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Extract every CPK under a game's data folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, inputFolder, outputFolder, threads, memoryGiB, rulesFile)
		},
	}

	cmd.Flags().StringVar(&inputFolder, "input-folder", "", "game data folder to scan for .cpk files")
	cmd.Flags().StringVar(&outputFolder, "output-folder", "extracted", "destination folder for extracted members")
	cmd.Flags().IntVar(&threads, "threads", 0, "worker parallelism (0 = all hardware concurrency)")
	cmd.Flags().Float64Var(&memoryGiB, "memory", 0, "resident memory budget in GiB (0 = all available system memory)")
	cmd.Flags().StringVar(&rulesFile, "rules-file", "", "optional regex rule file restricting which CPKs to extract")
	cmd.MarkFlagRequired("input-folder")

	return cmd
}

func runDump(cmd *cobra.Command, inputFolder, outputFolder string, threads int, memoryGiB float64, rulesFile string) error {
	logger, closer, err := openDiagLog()
	if err != nil {
		return err
	}
	defer closer.Close()

	inputFolder = cliutil.CleanPath(inputFolder)
	outputFolder = cliutil.CleanPath(outputFolder)

	if _, err := os.Stat(inputFolder); err != nil {
		return fmt.Errorf("input folder %s does not exist", inputFolder)
	}
	if !strings.HasSuffix(inputFolder, string(filepath.Separator)+"data") && filepath.Base(inputFolder) != "data" {
		inputFolder = filepath.Join(inputFolder, "data")
	}

	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return err
	}

	tempDir := filepath.Join(os.TempDir(), "ievrtool-temp")
	os.RemoveAll(tempDir)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	var cpkPaths []string
	err = filepath.WalkDir(inputFolder, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".cpk") {
			cpkPaths = append(cpkPaths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	selected := make(map[string]bool)
	if rulesFile != "" {
		catalogPath := filepath.Join(inputFolder, "cpk_list.cfg.bin")
		db, err := cfgdb.Load(catalogPath)
		if err != nil {
			return err
		}
		reList, err := rules.LoadFile(cliutil.CleanPath(rulesFile))
		if err != nil {
			return err
		}
		sel := rules.Select(db, reList)
		for _, f := range sel.MatchedFiles {
			selected[f] = true
		}
		cpkPaths = rules.FilterPaths(cpkPaths, sel)
	}

	sizeOf := make(map[string]int64, len(cpkPaths))
	var totalSize int64
	for _, p := range cpkPaths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		sizeOf[p] = info.Size()
		totalSize += info.Size()
	}
	sort.Slice(cpkPaths, func(i, j int) bool { return sizeOf[cpkPaths[i]] > sizeOf[cpkPaths[j]] })

	logger.Printf("found %d CPK files (%.2f GiB) to extract", len(cpkPaths), float64(totalSize)/(1<<30))

	parallelism := cliutil.ResolveThreads(threads)
	decryptThreads, _, decompressThreads := cliutil.ComputeThreadCounts(parallelism)

	var requestedMemory int64
	if memoryGiB > 0 {
		requestedMemory = int64(memoryGiB * (1 << 30))
	} else {
		requestedMemory = availableSystemMemory(0)
	}
	memoryLimit := cliutil.ResolveMemoryLimit(requestedMemory, decryptThreads)
	threshold := cliutil.ResidentThreshold(memoryLimit, decryptThreads)

	logger.Printf("memory allocated: %.2f GiB, in-RAM decryption threshold: %d MiB", float64(memoryLimit)/(1<<30), threshold/(1<<20))
	logger.Printf("decrypt threads: %d, decompress threads: %d", decryptThreads, decompressThreads)

	cfg := pipeline.Config{
		DecryptThreads:    decryptThreads,
		DecompressThreads: decompressThreads,
		MemoryLimit:       memoryLimit,
		Threshold:         threshold,
		TempDir:           tempDir,
		OutputDir:         outputFolder,
		SelectedFiles:     selected,
	}

	start := time.Now()
	prog := &pipeline.Progress{}
	if err := pipeline.Run(context.Background(), cpkPaths, cfg, prog); err != nil {
		return err
	}

	logger.Printf("extraction summary: %d bytes extracted in %s", prog.ExtractedBytes, time.Since(start).Round(time.Millisecond))
	return nil
}
