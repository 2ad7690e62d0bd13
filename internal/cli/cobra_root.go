package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// buildRootCmd constructs the Cobra command tree wired to the fn* actions.
func buildRootCmd(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "hearthcore",
		Short: "Local inference core: sessions, model registry, dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Options
	root.PersistentFlags().String("config", opts.ConfigPath, "Config file, .toml/.yaml/.json (defaults HEARTHCORE_CONFIG)")
	root.PersistentFlags().String("log-level", opts.LogLevel, "Log level: off|error|warn|info|debug (defaults HEARTHCORE_LOG_LEVEL or the config file)")
	root.PersistentFlags().String("auth-token", opts.AuthToken, "Shared auth token override (defaults HEARTHCORE_AUTH_TOKEN)")
	root.PersistentFlags().String("base-path", opts.BasePath, "Model base directory override (defaults HEARTHCORE_BASE_PATH)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("config"); f != nil {
			if v := f.Value.String(); v != "" {
				opts.ConfigPath = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				opts.LogLevel = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("auth-token"); f != nil {
			if v := f.Value.String(); v != "" {
				opts.AuthToken = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("base-path"); f != nil {
			if v := f.Value.String(); v != "" {
				opts.BasePath = v
			}
		}
	}

	// serve
	serveCmd := &cobra.Command{Use: "serve", Short: "Run the inference core until SIGINT/SIGTERM", Example: "  hearthcore serve --config hearthcore.toml --models llama-7b.gguf", RunE: func(cmd *cobra.Command, args []string) error {
		models, err := cmd.Flags().GetStringSlice("models")
		if err != nil {
			return err
		}
		return fnServe(opts, models)
	}}
	serveCmd.Flags().StringSlice("models", nil, "Model files to preload (relative paths resolve under the base path)")
	root.AddCommand(serveCmd)

	// probes
	healthCmd := &cobra.Command{Use: "health", Short: "Print the health report; exit 1 when unhealthy", RunE: func(cmd *cobra.Command, args []string) error {
		return fnProbe(cmd.OutOrStdout(), opts, probeHealth)
	}}
	liveCmd := &cobra.Command{Use: "live", Short: "Liveness probe; exit 1 when not alive", RunE: func(cmd *cobra.Command, args []string) error {
		return fnProbe(cmd.OutOrStdout(), opts, probeLive)
	}}
	readyCmd := &cobra.Command{Use: "ready", Short: "Readiness probe; exit 1 when not ready to admit work", RunE: func(cmd *cobra.Command, args []string) error {
		return fnProbe(cmd.OutOrStdout(), opts, probeReady)
	}}
	statusCmd := &cobra.Command{Use: "status", Short: "Print a metrics snapshot as JSON", RunE: func(cmd *cobra.Command, args []string) error {
		return fnStatus(cmd.OutOrStdout(), opts)
	}}
	modelsCmd := &cobra.Command{Use: "models [dir]", Short: "List model files under the base path (or dir)", Args: cobra.MaximumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		return fnModels(cmd.OutOrStdout(), opts, dir)
	}}
	root.AddCommand(healthCmd, liveCmd, readyCmd, statusCmd, modelsCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}
