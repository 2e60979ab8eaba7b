package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/input-output-hk/catalyst-forge-deployer/invoke"
)

func writeResponse(w io.Writer, resp *invoke.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
