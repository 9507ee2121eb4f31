package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
)

var initFlagForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter trinity.toml and .env.example",
	Long: `Write a commented trinity.toml and a .env.example into the current
directory (or the one given with --dir). Existing files are left alone
unless --force is supplied.

Secrets never go in trinity.toml; set the environment variables listed in
.env.example instead.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dest, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	created, err := config.WriteStarter(dest, initFlagForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(created) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("nothing to do; files already exist (use --force to overwrite)"))
		return nil
	}
	for _, path := range created {
		fmt.Fprintf(out, "%s %s\n", okStyle.Render("created"), path)
	}
	fmt.Fprintln(out, mutedStyle.Render(`fill in the secrets named in .env.example, then run "trinity serve"`))
	return nil
}
