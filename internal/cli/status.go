package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted supervisor state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "Print the raw state document as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := state.NewStore(cfg.Workspace, newQuietLogger())
	st := store.Load()
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Status:      %s\n", st.Status)
	fmt.Fprintf(out, "Workspace:   %s\n", st.WorkspacePath)
	if st.CurrentInstruction != nil {
		fmt.Fprintf(out, "Instruction: %s\n", *st.CurrentInstruction)
	}
	if st.StartedAt != nil {
		fmt.Fprintf(out, "Started:     %s (%s ago)\n",
			st.StartedAt.Format(time.RFC3339),
			time.Since(*st.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(out, "Iterations:  %d\n", st.IterationCount)
	if st.Error != nil {
		fmt.Fprintf(out, "Error:       %s\n", *st.Error)
	}
	return nil
}
