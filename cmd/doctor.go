package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"speech2srt/internal/config"
	"speech2srt/internal/deps"
)

var doctorPython string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check ffmpeg, whisper and CUDA availability",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorPython, "python", "python3", "python interpreter used for the CUDA check (empty to skip)")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return err
	}

	statuses, err := deps.Check(cmd.Context(), deps.Requirements(cfg), doctorPython, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, dependencyTable(statuses, isTerminal(out)))

	if missing := deps.Missing(statuses); len(missing) > 0 {
		return fmt.Errorf("%d required dependencies missing", len(missing))
	}
	return nil
}
