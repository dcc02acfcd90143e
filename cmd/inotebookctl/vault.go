package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inotebook/backend/client"
)

var failClosed bool

// unlock verifies the PIN when the account has one (INOTEBOOK_PIN) and loads the secret key
// into the session.
func (si *signedIn) unlock(cmd *cobra.Command) (string, error) {
	if si.session.Snapshot().PINSet {
		pin := os.Getenv("INOTEBOOK_PIN")
		if pin == "" {
			return "", errors.New("this account has a PIN; set INOTEBOOK_PIN")
		}
		if err := si.api.VerifyPIN(cmd.Context(), pin); err != nil {
			return "", fmt.Errorf("verify pin: %w", err)
		}
		if err := si.session.SetPINVerified(true); err != nil {
			return "", err
		}
	}
	if err := si.session.FetchAndSetSecretKey(cmd.Context(), si.api); err != nil {
		return "", fmt.Errorf("secret key: %w", err)
	}
	key := si.session.SecretKey()
	if key == "" {
		return "", errors.New("server returned an empty secret key")
	}
	return key, nil
}

var sealCmd = &cobra.Command{
	Use:   "seal <text>",
	Short: "Encrypt text locally with your account secret key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		si, err := login(cmd)
		if err != nil {
			return err
		}
		defer si.logout(cmd)
		key, err := si.unlock(cmd)
		if err != nil {
			return err
		}
		ct, err := client.NewSymmetricCipher(client.FailClosed).Encrypt(args[0], key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ct)
		return nil
	},
}

var unsealCmd = &cobra.Command{
	Use:   "unseal <ciphertext>",
	Short: "Decrypt text sealed with your account secret key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		si, err := login(cmd)
		if err != nil {
			return err
		}
		defer si.logout(cmd)
		key, err := si.unlock(cmd)
		if err != nil {
			return err
		}
		policy := client.FailOpen
		if failClosed {
			policy = client.FailClosed
		}
		plain, err := client.NewSymmetricCipher(policy).Decrypt(args[0], key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), plain)
		return nil
	},
}

func init() {
	unsealCmd.Flags().BoolVar(&failClosed, "fail-closed", false, "error out instead of echoing unreadable input")
}
