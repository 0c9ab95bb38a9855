package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vigil/internal/executor"
	"vigil/internal/state"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the workspace, container, and agent CLI are usable",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	report := func(ok bool, name, hint string) {
		mark := "ok"
		if !ok {
			mark = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "[%4s] %s\n", mark, name)
		if !ok && hint != "" {
			fmt.Fprintf(out, "       %s\n", hint)
		}
	}

	info, statErr := os.Stat(cfg.Workspace)
	workspaceOK := statErr == nil && info.IsDir()
	report(workspaceOK, fmt.Sprintf("workspace %s", cfg.Workspace),
		"create the directory or point --workspace at an existing one")

	dockerExec := executor.NewDockerExecutor(cfg.Container, cfg.AgentCmd, newQuietLogger())
	ctx := cmd.Context()

	containerOK := dockerExec.CheckContainer(ctx)
	report(containerOK, fmt.Sprintf("container %s running", cfg.Container),
		fmt.Sprintf("start it first, e.g. docker start %s", cfg.Container))

	if containerOK {
		agentOK := dockerExec.CheckAgent(ctx)
		report(agentOK, fmt.Sprintf("agent command %q responds", cfg.AgentCmd[0]),
			"check that the agent CLI is installed inside the container")
	}

	if workspaceOK {
		store := state.NewStore(cfg.Workspace, newQuietLogger())
		st := store.Load()
		report(true, fmt.Sprintf("state document (%s)", st.Status), "")
	}

	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(out, "[warn] %s\n", warning)
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
