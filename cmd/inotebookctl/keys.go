package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"inotebook/backend/internal/security"
)

var (
	keygenBits int
	keygenOut  string
	hashCost   int
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA key pair for JWT_PRIVATE_KEY/JWT_PUBLIC_KEY or TRANSPORT_PRIVATE_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keygenBits < 2048 {
			return fmt.Errorf("key size %d is too small; use at least 2048", keygenBits)
		}
		priv, pub, err := security.GenerateRSAKeyPEM(keygenBits)
		if err != nil {
			return err
		}
		if keygenOut == "" {
			out := cmd.OutOrStdout()
			_, _ = out.Write(priv)
			_, _ = out.Write(pub)
			return nil
		}
		if err := os.MkdirAll(keygenOut, 0o700); err != nil {
			return err
		}
		privPath := filepath.Join(keygenOut, "private.pem")
		pubPath := filepath.Join(keygenOut, "public.pem")
		if err := os.WriteFile(privPath, priv, 0o600); err != nil {
			return err
		}
		if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privPath, pubPath)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print its bcrypt hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		password := trimNewline(raw)
		if len(password) == 0 {
			return errors.New("empty password on stdin")
		}
		hash, err := security.NewHasher(hashCost).Hash(cmd.Context(), password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func init() {
	keygenCmd.Flags().IntVar(&keygenBits, "bits", 2048, "RSA key size")
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "", "directory for private.pem and public.pem (default stdout)")
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", security.DefaultBcryptCost, "bcrypt cost")
}
