package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/don7panic/nbkit/auth"
	"github.com/don7panic/nbkit/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in for notebook function tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newAuthLoginCmd(a), newAuthTokenCmd(a), newAuthWhoamiCmd(a))
	return cmd
}

func (a *app) authenticator(cmd *cobra.Command) (*auth.Authenticator, error) {
	au, err := auth.New(a.cfg.AuthConfig(), a.log)
	if err != nil {
		return nil, err
	}
	au.Out = cmd.ErrOrStderr()
	return au, nil
}

func newAuthLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with a device code and cache the tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			au, err := a.authenticator(cmd)
			if err != nil {
				return err
			}
			result, err := au.Login(cmd.Context())
			if err != nil {
				return err
			}
			ui.Successf(cmd.OutOrStdout(), "Signed in as %s, token cached in %s", result.Account.PreferredUsername, a.cfg.AuthConfig().CachePath)
			return nil
		},
	}
}

func newAuthTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print an access token, signing in if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			au, err := a.authenticator(cmd)
			if err != nil {
				return err
			}
			token, err := au.Token(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}

func newAuthWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity in the cached id token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := auth.IDTokenFromCache(a.fs, a.cfg.AuthConfig().CachePath)
			if err != nil {
				return err
			}
			claims, err := auth.Claims(raw)
			if err != nil {
				return err
			}
			ui.Infof(cmd.OutOrStdout(), "%s (tenant %v)", auth.Username(claims), claims["tid"])
			return nil
		},
	}
}
