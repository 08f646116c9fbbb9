package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-bot/internal/auth"
)

var hashKeyCost int

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Print the OPS_API_KEY_HASH value for an ops API key",
	Long:  "Hashes the given key with bcrypt. Without an argument the key is read from the first line of stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHashKey,
}

func init() {
	hashKeyCmd.Flags().IntVar(&hashKeyCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
}

func runHashKey(cmd *cobra.Command, args []string) error {
	key, err := readKey(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	hash, err := auth.HashAPIKey(key, hashKeyCost)
	if err != nil {
		return fmt.Errorf("hash-key: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}

func readKey(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("hash-key: read stdin: %w", err)
	}
	key := strings.TrimRight(line, "\r\n")
	if key == "" {
		return "", errors.New("hash-key: no key given")
	}
	return key, nil
}
