package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetBlock fetches a block by hash.
func (c *Client) GetBlock(ctx context.Context, hash string) (*Block, error) {
	var resp Block
	if err := c.get(ctx, "/block/"+hash, nil, &resp); err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	return &resp, nil
}

// GetBlockStatus fetches the chain status of a block.
func (c *Client) GetBlockStatus(ctx context.Context, hash string) (*BlockStatus, error) {
	var resp BlockStatus
	if err := c.get(ctx, "/block/"+hash+"/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get block status %s: %w", hash, err)
	}
	return &resp, nil
}

// GetBlockTxs fetches 25 transactions of a block starting at startIndex,
// which must be a multiple of 25.
func (c *Client) GetBlockTxs(ctx context.Context, hash string, startIndex int) ([]Transaction, error) {
	path := "/block/" + hash + "/txs"
	if startIndex > 0 {
		path += "/" + strconv.Itoa(startIndex)
	}

	var resp []Transaction
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get block txs %s: %w", hash, err)
	}
	return resp, nil
}

// GetBlockTxIDs fetches every transaction ID in a block.
func (c *Client) GetBlockTxIDs(ctx context.Context, hash string) ([]string, error) {
	var resp []string
	if err := c.get(ctx, "/block/"+hash+"/txids", nil, &resp); err != nil {
		return nil, fmt.Errorf("get block txids %s: %w", hash, err)
	}
	return resp, nil
}

// GetBlocks fetches the 10 blocks ending at startHeight, or the newest
// 10 when startHeight is negative.
func (c *Client) GetBlocks(ctx context.Context, startHeight int64) ([]Block, error) {
	path := "/blocks"
	if startHeight >= 0 {
		path += "/" + strconv.FormatInt(startHeight, 10)
	}

	var resp []Block
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get blocks: %w", err)
	}
	return resp, nil
}

// GetBlockHashByHeight resolves a height to a block hash.
func (c *Client) GetBlockHashByHeight(ctx context.Context, height int64) (string, error) {
	hash, err := c.getText(ctx, "/block-height/"+strconv.FormatInt(height, 10), nil)
	if err != nil {
		return "", fmt.Errorf("get block hash at %d: %w", height, err)
	}
	return hash, nil
}

// GetTipHeight fetches the height of the best chain tip.
func (c *Client) GetTipHeight(ctx context.Context) (int64, error) {
	text, err := c.getText(ctx, "/blocks/tip/height", nil)
	if err != nil {
		return 0, fmt.Errorf("get tip height: %w", err)
	}
	height, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse tip height %q: %w", text, err)
	}
	return height, nil
}

// GetTipHash fetches the hash of the best chain tip.
func (c *Client) GetTipHash(ctx context.Context) (string, error) {
	hash, err := c.getText(ctx, "/blocks/tip/hash", nil)
	if err != nil {
		return "", fmt.Errorf("get tip hash: %w", err)
	}
	return hash, nil
}

// GetDifficultyAdjustment fetches the current retarget estimate.
func (c *Client) GetDifficultyAdjustment(ctx context.Context) (*DifficultyAdjustment, error) {
	var resp DifficultyAdjustment
	if err := c.get(ctx, "/v1/difficulty-adjustment", url.Values{}, &resp); err != nil {
		return nil, fmt.Errorf("get difficulty adjustment: %w", err)
	}
	return &resp, nil
}
