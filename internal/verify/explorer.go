package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

type (
	// Explorer talks to an Etherscan compatible API
	Explorer struct {
		httpClient *resty.Client
		apiURL     string
		apiKey     string
		chainID    uint64
	}

	explorerResponse struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}

	sourceCode struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
	}
)

// NewExplorer creates a client for one chain of the explorer API
func NewExplorer(apiURL, apiKey string, chainID uint64, timeout time.Duration) *Explorer {
	return &Explorer{
		httpClient: resty.New().SetTimeout(timeout),
		apiURL:     apiURL,
		apiKey:     apiKey,
		chainID:    chainID,
	}
}

// IsVerified reports whether the explorer already has source code for address
func (e *Explorer) IsVerified(ctx context.Context, address string) (bool, error) {
	var response explorerResponse

	resp, err := e.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"chainid": strconv.FormatUint(e.chainID, 10),
			"module":  "contract",
			"action":  "getsourcecode",
			"address": address,
			"apikey":  e.apiKey,
		}).
		SetResult(&response).
		Get(e.apiURL)
	if err != nil {
		return false, fmt.Errorf("explorer request failed: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("explorer responded with status %d: %s", resp.StatusCode(), resp.String())
	}

	if response.Status != "1" {
		var reason string
		if err := json.Unmarshal(response.Result, &reason); err != nil {
			reason = string(response.Result)
		}
		return false, fmt.Errorf("explorer rejected the request: %s: %s", response.Message, reason)
	}

	var sources []sourceCode
	if err := json.Unmarshal(response.Result, &sources); err != nil {
		return false, fmt.Errorf("failed to decode explorer result: %w", err)
	}

	for _, source := range sources {
		if source.SourceCode != "" {
			return true, nil
		}
	}

	return false, nil
}
