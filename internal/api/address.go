package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetAddress fetches the stats for an address.
func (c *Client) GetAddress(ctx context.Context, address string) (*AddressInfo, error) {
	var resp AddressInfo
	if err := c.get(ctx, "/address/"+address, nil, &resp); err != nil {
		return nil, fmt.Errorf("get address %s: %w", address, err)
	}
	return &resp, nil
}

// GetAddressTxs fetches transaction history for an address, newest
// first. afterTxID pages past a previously seen transaction.
func (c *Client) GetAddressTxs(ctx context.Context, address, afterTxID string) ([]Transaction, error) {
	query := url.Values{}
	if afterTxID != "" {
		query.Set("after_txid", afterTxID)
	}

	var resp []Transaction
	if err := c.get(ctx, "/address/"+address+"/txs", query, &resp); err != nil {
		return nil, fmt.Errorf("get address txs %s: %w", address, err)
	}
	return resp, nil
}

// GetAddressTxsMempool fetches the unconfirmed transactions touching an
// address.
func (c *Client) GetAddressTxsMempool(ctx context.Context, address string) ([]Transaction, error) {
	var resp []Transaction
	if err := c.get(ctx, "/address/"+address+"/txs/mempool", nil, &resp); err != nil {
		return nil, fmt.Errorf("get address mempool txs %s: %w", address, err)
	}
	return resp, nil
}

// GetAddressUTXOs fetches the unspent outputs of an address.
func (c *Client) GetAddressUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	var resp []UTXO
	if err := c.get(ctx, "/address/"+address+"/utxo", nil, &resp); err != nil {
		return nil, fmt.Errorf("get address utxos %s: %w", address, err)
	}
	return resp, nil
}

// ValidateAddress checks whether a string parses as a Bitcoin address.
func (c *Client) ValidateAddress(ctx context.Context, address string) (*AddressValidation, error) {
	var resp AddressValidation
	if err := c.get(ctx, "/v1/validate-address/"+address, nil, &resp); err != nil {
		return nil, fmt.Errorf("validate address %s: %w", address, err)
	}
	return &resp, nil
}
