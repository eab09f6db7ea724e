package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagServer     string
	flagRenewToken string
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Request a persistent room identity from the relay",
	Long: `Request a signed identity such as GOLF-7QX2 from the relay's HTTP API.
Pass --renew with an existing token to extend it.

Examples:
  golfbot identity --server http://localhost:8080
  golfbot identity --renew <token>`,
	RunE: runIdentity,
}

func init() {
	identityCmd.Flags().StringVar(&flagServer, "server", "http://localhost:8080", "Relay HTTP base URL")
	identityCmd.Flags().StringVar(&flagRenewToken, "renew", "", "Existing token to renew")
}

type identityResponse struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Error     string    `json:"error"`
}

func runIdentity(cmd *cobra.Command, args []string) error {
	body, _ := json.Marshal(map[string]string{"token": flagRenewToken})
	url := strings.TrimRight(flagServer, "/") + "/api/v1/identity"

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request identity: %w", err)
	}
	defer resp.Body.Close()

	var out identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay refused (%d): %s", resp.StatusCode, out.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "identity: %s\ntoken:    %s\nexpires:  %s\n",
		out.Identity, out.Token, out.ExpiresAt.Format(time.RFC3339))
	return nil
}
