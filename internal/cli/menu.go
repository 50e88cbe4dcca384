package cli

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"aurelion/internal/pipeline"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive console menu",
	Long: `Open a small interactive menu wrapping the same operations as the
subcommands: run the pipeline, inspect the last run's metrics, validate the
datasets.`,
	RunE: runMenu,
}

func runMenu(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var last *pipeline.Result
	in := bufio.NewScanner(cmd.InOrStdin())

	for {
		cmd.Println()
		cmd.Println("aurelion")
		cmd.Println("  1) run pipeline")
		cmd.Println("  2) show metrics of last run")
		cmd.Println("  3) validate datasets")
		cmd.Println("  0) exit")
		cmd.Print("> ")

		if !in.Scan() {
			if err := in.Err(); err != nil && err != io.EOF {
				return err
			}
			return nil
		}

		switch strings.TrimSpace(in.Text()) {
		case "1":
			p, err := pipeline.New(pipeline.Options{Config: cfg, Log: pipelineLogger{}})
			if err != nil {
				return err
			}
			res, err := p.Run(context.Background())
			if err != nil {
				cmd.Printf("run failed: %v\n", err)
				continue
			}
			last = res
			cmd.Printf("run complete: %d fact rows, reports in %s\n", len(res.Bundle.Facts), cfg.Export.Dir)
		case "2":
			if last == nil {
				cmd.Println("no run yet")
				continue
			}
			printRunSummary(cmd, last)
		case "3":
			if err := runValidate(cmd, nil); err != nil {
				cmd.Printf("validation failed: %v\n", err)
			}
		case "0", "q", "exit":
			return nil
		default:
			cmd.Println("unknown option")
		}
	}
}
