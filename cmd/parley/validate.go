package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog for consistency",
	Long: `Loads the catalog documents and reports broken references, unreachable
nodes, options that can never match and intent words lost to tokenization.
Load errors always fail; findings fail only with --strict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict")

		c, err := catalog.Load(cmd.Context(), newLoader(cfg, logger), catalog.WithEntryNode(cfg.EntryNode))
		if err != nil {
			return fmt.Errorf("catalog does not load: %w", err)
		}

		out := cmd.OutOrStdout()
		nodes, intents := c.Len()
		fmt.Fprintf(out, "Loaded %d dialogue nodes and %d intents.\n", nodes, intents)

		report := validator.Validate(c)
		if report.OK() {
			fmt.Fprintln(out, "Catalog is valid!")
			return nil
		}
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "warning: %s\n", issue)
		}
		if strict {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Exit with an error when any issue is found")
}
