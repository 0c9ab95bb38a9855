package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/state"
)

var promptCmd = &cobra.Command{
	Use:   "prompt <instruction>",
	Short: "Queue an instruction for the agent",
	Long: `Queue an instruction for the agent. A running supervisor picks it up on
its next idle check; otherwise it waits until 'vigil start'.

Queuing replaces any previous instruction and resets the iteration counter.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	instruction := strings.TrimSpace(strings.Join(args, " "))
	if instruction == "" {
		return fmt.Errorf("instruction is empty")
	}

	store := state.NewStore(cfg.Workspace, newQuietLogger())
	if err := os.MkdirAll(store.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create bookkeeping directory: %w", err)
	}

	previous := store.Load()
	if err := store.SetInstruction(instruction); err != nil {
		return fmt.Errorf("failed to queue instruction: %w", err)
	}

	out := cmd.OutOrStdout()
	if previous.Status == state.StatusRunning {
		fmt.Fprintln(out, "Note: a task is currently running; the new instruction takes effect next iteration.")
	}
	fmt.Fprintf(out, "Instruction queued: %s\n", instruction)
	return nil
}
