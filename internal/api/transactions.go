package api

import (
	"context"
	"fmt"
	"strconv"
)

// GetTx fetches a transaction by ID.
func (c *Client) GetTx(ctx context.Context, txid string) (*Transaction, error) {
	var resp Transaction
	if err := c.get(ctx, "/tx/"+txid, nil, &resp); err != nil {
		return nil, fmt.Errorf("get tx %s: %w", txid, err)
	}
	return &resp, nil
}

// GetTxStatus fetches the confirmation state of a transaction.
func (c *Client) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	var resp TxStatus
	if err := c.get(ctx, "/tx/"+txid+"/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get tx status %s: %w", txid, err)
	}
	return &resp, nil
}

// GetTxHex fetches the raw transaction as hex.
func (c *Client) GetTxHex(ctx context.Context, txid string) (string, error) {
	hex, err := c.getText(ctx, "/tx/"+txid+"/hex", nil)
	if err != nil {
		return "", fmt.Errorf("get tx hex %s: %w", txid, err)
	}
	return hex, nil
}

// GetTxOutspend fetches the spending state of one output.
func (c *Client) GetTxOutspend(ctx context.Context, txid string, vout int) (*Outspend, error) {
	var resp Outspend
	if err := c.get(ctx, "/tx/"+txid+"/outspend/"+strconv.Itoa(vout), nil, &resp); err != nil {
		return nil, fmt.Errorf("get tx outspend %s:%d: %w", txid, vout, err)
	}
	return &resp, nil
}

// GetTxOutspends fetches the spending state of every output.
func (c *Client) GetTxOutspends(ctx context.Context, txid string) ([]Outspend, error) {
	var resp []Outspend
	if err := c.get(ctx, "/tx/"+txid+"/outspends", nil, &resp); err != nil {
		return nil, fmt.Errorf("get tx outspends %s: %w", txid, err)
	}
	return resp, nil
}

// BroadcastTx submits a raw transaction in hex and returns its txid.
func (c *Client) BroadcastTx(ctx context.Context, txHex string) (string, error) {
	txid, err := c.postText(ctx, "/tx", txHex)
	if err != nil {
		return "", fmt.Errorf("broadcast tx: %w", err)
	}
	return txid, nil
}
