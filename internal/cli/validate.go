package cli

import (
	"github.com/spf13/cobra"

	"aurelion/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured datasets without running the pipeline",
	Long: `Load the configured datasets, check their schemas against the
contracts, and report referential integrity findings. Nothing is cleaned,
computed or written.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Options{Config: cfg, Log: pipelineLogger{}})
	if err != nil {
		return err
	}

	res, err := p.Check()
	if err != nil {
		return err
	}

	cmd.Println("Schemas: ok")
	for table, cols := range res.MissingOptional {
		cmd.Printf("  %s: missing optional columns %v\n", table, cols)
	}

	st := res.Integrity
	if st.Orphans() == 0 {
		cmd.Println("Referential integrity: ok")
		return nil
	}
	cmd.Printf("Referential integrity: %d orphans\n", st.Orphans())
	cmd.Printf("  sale lines without sale:     %d\n", st.LinesMissingSale)
	cmd.Printf("  sale lines without product:  %d\n", st.LinesMissingProduct)
	cmd.Printf("  sales without customer:      %d\n", st.SalesMissingCustomer)
	return nil
}
