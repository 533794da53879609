package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/leadsync/auth"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend and store the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if loginPassword == "" {
			loginPassword = os.Getenv("LEADSYNC_PASSWORD")
		}
		if loginEmail == "" || loginPassword == "" {
			return errors.New("--email and --password (or LEADSYNC_PASSWORD) are required")
		}
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.gw.Login(ctx, loginEmail, loginPassword)
		if err != nil {
			return err
		}
		st := &auth.State{Token: res.Token, IsAuthenticated: true, User: res.User}
		if err := s.tokens.Set(ctx, st); err != nil {
			return err
		}
		if sub, err := s.gw.Subscription(ctx); err != nil {
			logger.Warn("login: subscription unavailable", "error", err)
		} else if raw, err := json.Marshal(sub); err == nil {
			st.Subscription = raw
			if err := s.tokens.Set(ctx, st); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), res.User)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the backend session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.gw.Logout(ctx); err != nil {
			logger.Warn("logout: backend call failed, clearing local session", "error", err)
			return s.tokens.Clear(ctx)
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the signed-in account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		u, err := s.gw.User(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), u)
	},
}

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		cs, err := s.gw.Campaigns(ctx, false)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), cs)
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, campaignsCmd)
}
