package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active profile and a one-shot connectivity probe",
		RunE:  runStatus,
	}
}

type statusOutput struct {
	Profile          string   `json:"profile"`
	LocalStorePath   string   `json:"local_store_path"`
	Tables           []string `json:"tables"`
	ConflictStrategy string   `json:"conflict_strategy"`
	Paused           bool     `json:"paused"`
	Online           *bool    `json:"online,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	rp := cc.Profile

	out := statusOutput{
		Profile:          rp.Name,
		LocalStorePath:   rp.LocalStorePath,
		Tables:           rp.Tables,
		ConflictStrategy: rp.Sync.ConflictStrategy,
		Paused:           rp.Paused,
	}

	if rp.Network.ProbeURL != "" {
		online := probeOnce(cmd.Context(), rp.Network.ProbeURL, parseDurationOrDefault(rp.Network.ConnectTimeout, 10*time.Second))
		out.Online = &online
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Profile:            %s\n", out.Profile)
	fmt.Printf("Local store:        %s\n", out.LocalStorePath)
	fmt.Printf("Tables:             %v\n", out.Tables)
	fmt.Printf("Conflict strategy:  %s\n", out.ConflictStrategy)
	fmt.Printf("Paused:             %v\n", out.Paused)
	if out.Online != nil {
		fmt.Printf("Online:             %v\n", *out.Online)
	} else {
		fmt.Printf("Online:             unknown (network.probe_url not configured)\n")
	}
	return nil
}

// probeOnce issues a single HEAD request, mirroring the Network
// Monitor's own probe (netmon.Monitor.probe) without standing up a
// full polling Monitor for a one-shot status check.
func probeOnce(ctx context.Context, probeURL string, timeout time.Duration) bool {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
