package api

import (
	"context"
	"fmt"
)

// GetMempool fetches the current mempool backlog stats.
func (c *Client) GetMempool(ctx context.Context) (*MempoolSnapshot, error) {
	var resp MempoolSnapshot
	if err := c.get(ctx, "/mempool", nil, &resp); err != nil {
		return nil, fmt.Errorf("get mempool: %w", err)
	}
	return &resp, nil
}

// GetMempoolTxIDs fetches every transaction ID currently in the mempool.
func (c *Client) GetMempoolTxIDs(ctx context.Context) ([]string, error) {
	var resp []string
	if err := c.get(ctx, "/mempool/txids", nil, &resp); err != nil {
		return nil, fmt.Errorf("get mempool txids: %w", err)
	}
	return resp, nil
}

// GetMempoolRecent fetches the latest transactions to enter the mempool.
func (c *Client) GetMempoolRecent(ctx context.Context) ([]RecentTx, error) {
	var resp []RecentTx
	if err := c.get(ctx, "/mempool/recent", nil, &resp); err != nil {
		return nil, fmt.Errorf("get mempool recent: %w", err)
	}
	return resp, nil
}
