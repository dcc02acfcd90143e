package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"inotebook/backend/client"
)

var (
	loginEmail string
	recipient  string
	keyTimeout time.Duration
)

// signedIn is one CLI login: the cookie-holding API and the client session it filled.
type signedIn struct {
	api     *client.API
	session *client.Session
}

// login signs in with --email and INOTEBOOK_PASSWORD.
func login(cmd *cobra.Command) (*signedIn, error) {
	password := os.Getenv("INOTEBOOK_PASSWORD")
	if loginEmail == "" || password == "" {
		return nil, errors.New("--email and INOTEBOOK_PASSWORD are required")
	}
	api, err := client.NewAPI(baseURL)
	if err != nil {
		return nil, err
	}
	sum, err := api.Login(cmd.Context(), loginEmail, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s := client.NewSession()
	s.Login(sum)
	return &signedIn{api: api, session: s}, nil
}

func (si *signedIn) logout(cmd *cobra.Command) {
	si.session.Logout()
	_ = si.api.Logout(cmd.Context())
}

var sendMessageCmd = &cobra.Command{
	Use:   "send-message <text>",
	Short: "Encrypt a message with the server transport key and send it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if recipient == "" {
			return errors.New("--to is required")
		}
		si, err := login(cmd)
		if err != nil {
			return err
		}
		defer si.logout(cmd)
		api := si.api

		ct, err := client.NewEncryptor(api, keyTimeout).Encrypt(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		id, err := api.SendMessage(cmd.Context(), recipient, ct)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", id)
		return nil
	},
}

var liveUsersCmd = &cobra.Command{
	Use:   "live-users",
	Short: "List users with a recent heartbeat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		si, err := login(cmd)
		if err != nil {
			return err
		}
		defer si.logout(cmd)
		api := si.api

		if err := api.Heartbeat(cmd.Context()); err != nil {
			return err
		}
		users, err := api.LiveUsers(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, u := range users {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", u.UserID, u.Email, u.Name, u.LastSeen.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{sendMessageCmd, liveUsersCmd, sealCmd, unsealCmd} {
		c.Flags().StringVar(&loginEmail, "email", os.Getenv("INOTEBOOK_EMAIL"), "account email")
	}
	sendMessageCmd.Flags().StringVar(&recipient, "to", "", "recipient email")
	sendMessageCmd.Flags().DurationVar(&keyTimeout, "key-timeout", client.DefaultKeyFetchTimeout, "public key fetch timeout")
}
