package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokengate/internal/infrastructure/crypto"
)

func newKeysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the signing key pair",
	}

	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Generate the key pair if absent and verify it loads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			provider := opts.keyProvider(cfg)
			pair, err := provider.EnsureKeys(cmd.Context())
			if err != nil {
				return err
			}
			kid, err := pair.KeyID()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "private key: %s\n", provider.PrivateKeyPath())
			fmt.Fprintf(out, "public key:  %s\n", provider.PublicKeyPath())
			fmt.Fprintf(out, "kid:         %s\n", kid)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show-public",
		Short: "Print the public key in PEM form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			pub, err := crypto.LoadPublicKey(opts.keyProvider(cfg).PublicKeyPath())
			if err != nil {
				return err
			}
			pemBytes, err := crypto.EncodePublicKeyPEM(pub)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(pemBytes)
			return err
		},
	}

	cmd.AddCommand(ensureCmd, showCmd)
	return cmd
}
