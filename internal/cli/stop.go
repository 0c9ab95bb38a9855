package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/state"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Clear the queued instruction and return the run to idle",
	Long: `Clear the queued instruction and return the persisted state to idle.

A running supervisor finishes the invocation already in flight, notices the
cleared instruction, and goes back to idling. The supervisor process itself
keeps running; interrupt 'vigil start' to shut it down.`,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := state.NewStore(cfg.Workspace, newQuietLogger())
	st := store.Load()
	out := cmd.OutOrStdout()

	if st.Instruction() == "" && st.Status == state.StatusIdle {
		fmt.Fprintln(out, "Nothing to stop: no instruction is queued.")
		return nil
	}

	if err := store.MarkIdle(); err != nil {
		return fmt.Errorf("failed to clear instruction: %w", err)
	}

	fmt.Fprintln(out, "Instruction cleared. A running supervisor will idle after the current iteration.")
	return nil
}
