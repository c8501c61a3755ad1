package main

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/infrastructure/crypto"
	"github.com/turtacn/tokengate/pkg/logger"
)

type rootOptions struct {
	configFile string
	keysDir    string
}

// newRootCmd builds the command tree.
// newRootCmd 构建命令树。
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "tokengate-admin",
		Short: "Admin CLI for the tokengate service",
		Long: `tokengate-admin is a command-line interface for administrative tasks on
a tokengate deployment, such as provisioning signing keys, issuing and
inspecting tokens, and granting roles.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to the configuration file")
	cmd.PersistentFlags().StringVar(&opts.keysDir, "keys-dir", "", "override keys.dir from the configuration")

	cmd.AddCommand(newKeysCmd(opts), newTokenCmd(opts), newUserCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.keysDir != "" {
		cfg.Keys.Dir = o.keysDir
	}
	return cfg, nil
}

func (o *rootOptions) keyProvider(cfg *config.Config) *crypto.KeyProvider {
	return crypto.NewKeyProvider(cfg.Keys, logger.NewNoopLogger())
}
