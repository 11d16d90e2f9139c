package api

import (
	"context"
	"fmt"
)

// GetRecommendedFees fetches the current fee estimates in sat/vB.
func (c *Client) GetRecommendedFees(ctx context.Context) (*RecommendedFees, error) {
	var resp RecommendedFees
	if err := c.get(ctx, "/v1/fees/recommended", nil, &resp); err != nil {
		return nil, fmt.Errorf("get recommended fees: %w", err)
	}
	return &resp, nil
}

// GetProjectedBlocks fetches the fee-ordered projection of upcoming
// blocks built from the current mempool.
func (c *Client) GetProjectedBlocks(ctx context.Context) ([]ProjectedBlock, error) {
	var resp []ProjectedBlock
	if err := c.get(ctx, "/v1/fees/mempool-blocks", nil, &resp); err != nil {
		return nil, fmt.Errorf("get projected blocks: %w", err)
	}
	return resp, nil
}
