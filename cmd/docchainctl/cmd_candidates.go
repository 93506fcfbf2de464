package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"docchain/internal/modules/aadhaar/domain"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates <text-file|->",
	Short: "List identifier candidates found in a transcription",
	Long:  "candidates prints every candidate in discovery order, marking those\nthat are valid 12-digit identifiers with '*'. Use '-' to read stdin.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCandidates,
}

func runCandidates(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read transcription: %w", err)
	}

	out := cmd.OutOrStdout()
	candidates := domain.ExtractCandidates(string(data))
	if len(candidates) == 0 {
		fmt.Fprintln(out, "no candidates")
		return nil
	}
	for _, c := range candidates {
		mark := " "
		if domain.IsValidAadhaarNumber(c) {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, c)
	}
	return nil
}
