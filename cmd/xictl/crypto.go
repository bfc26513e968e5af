package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Seal stdin under the current ephemeral key, writing base64 to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		plaintext, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %v", err)
		}
		ciphertext, err := c.Encrypt(plaintext)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		fmt.Println(base64.StdEncoding.EncodeToString(ciphertext))
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Open base64 ciphertext from stdin, writing plaintext to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		encoded, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %v", err)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(string(trimNewline(encoded)))
		if err != nil {
			return fmt.Errorf("failed to decode base64: %v", err)
		}
		plaintext, err := c.Decrypt(ciphertext)
		if err != nil {
			return fmt.Errorf("failed to decrypt: %w", err)
		}
		os.Stdout.Write(plaintext)
		return nil
	},
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Produce an HMAC-SHA3-256 tag over stdin, writing base64 to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %v", err)
		}
		tag, err := c.Sign(data)
		if err != nil {
			return fmt.Errorf("failed to sign: %w", err)
		}
		fmt.Println(base64.StdEncoding.EncodeToString(tag))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a base64 HMAC tag over stdin against --tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		tagB64, _ := cmd.Flags().GetString("tag")
		tag, err := base64.StdEncoding.DecodeString(tagB64)
		if err != nil {
			return fmt.Errorf("failed to decode --tag: %v", err)
		}

		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %v", err)
		}
		if err := c.Verify(data, tag); err != nil {
			return fmt.Errorf("failed to verify: %w", err)
		}
		fmt.Println("✓ signature valid")
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("tag", "", "base64 HMAC tag to verify against stdin")
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
