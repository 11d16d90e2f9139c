package api

// AddressInfo from GET /address/{address}
type AddressInfo struct {
	Address      string  `json:"address"`
	ChainStats   TxStats `json:"chain_stats"`
	MempoolStats TxStats `json:"mempool_stats"`
}

// TxStats is the funded/spent tally for one side of an address.
type TxStats struct {
	FundedTxoCount int64 `json:"funded_txo_count"`
	FundedTxoSum   int64 `json:"funded_txo_sum"`
	SpentTxoCount  int64 `json:"spent_txo_count"`
	SpentTxoSum    int64 `json:"spent_txo_sum"`
	TxCount        int64 `json:"tx_count"`
}

// ConfirmedBalance returns the confirmed balance in satoshis.
func (a *AddressInfo) ConfirmedBalance() int64 {
	return a.ChainStats.FundedTxoSum - a.ChainStats.SpentTxoSum
}

// PendingBalance returns the net unconfirmed balance change in satoshis.
func (a *AddressInfo) PendingBalance() int64 {
	return a.MempoolStats.FundedTxoSum - a.MempoolStats.SpentTxoSum
}

// UTXO from GET /address/{address}/utxo
type UTXO struct {
	TxID   string   `json:"txid"`
	Vout   int      `json:"vout"`
	Status TxStatus `json:"status"`
	Value  int64    `json:"value"`
}

// Block from GET /block/{hash} and GET /blocks
type Block struct {
	ID                string  `json:"id"`
	Height            int64   `json:"height"`
	Version           int64   `json:"version"`
	Timestamp         int64   `json:"timestamp"`
	TxCount           int64   `json:"tx_count"`
	Size              int64   `json:"size"`
	Weight            int64   `json:"weight"`
	MerkleRoot        string  `json:"merkle_root"`
	PreviousBlockHash string  `json:"previousblockhash"`
	MedianTime        int64   `json:"mediantime"`
	Nonce             int64   `json:"nonce"`
	Bits              int64   `json:"bits"`
	Difficulty        float64 `json:"difficulty"`
}

// BlockStatus from GET /block/{hash}/status
type BlockStatus struct {
	InBestChain bool   `json:"in_best_chain"`
	Height      int64  `json:"height"`
	NextBest    string `json:"next_best"`
}

// Transaction from GET /tx/{txid}
type Transaction struct {
	TxID     string   `json:"txid"`
	Version  int64    `json:"version"`
	Locktime int64    `json:"locktime"`
	Vin      []Vin    `json:"vin"`
	Vout     []Vout   `json:"vout"`
	Size     int64    `json:"size"`
	Weight   int64    `json:"weight"`
	Fee      int64    `json:"fee"`
	Status   TxStatus `json:"status"`
}

// Vin is a transaction input.
type Vin struct {
	TxID       string `json:"txid"`
	Vout       int    `json:"vout"`
	Prevout    *Vout  `json:"prevout"`
	ScriptSig  string `json:"scriptsig"`
	IsCoinbase bool   `json:"is_coinbase"`
	Sequence   int64  `json:"sequence"`
}

// Vout is a transaction output.
type Vout struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyType    string `json:"scriptpubkey_type"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

// TxStatus is the confirmation state of a transaction.
type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

// Outspend from GET /tx/{txid}/outspend/{vout}
type Outspend struct {
	Spent  bool     `json:"spent"`
	TxID   string   `json:"txid"`
	Vin    int      `json:"vin"`
	Status TxStatus `json:"status"`
}

// MempoolSnapshot from GET /mempool
type MempoolSnapshot struct {
	Count        int64        `json:"count"`
	VSize        int64        `json:"vsize"`
	TotalFee     int64        `json:"total_fee"`
	FeeHistogram [][2]float64 `json:"fee_histogram"`
}

// RecentTx from GET /mempool/recent
type RecentTx struct {
	TxID  string `json:"txid"`
	Fee   int64  `json:"fee"`
	VSize int64  `json:"vsize"`
	Value int64  `json:"value"`
}

// RecommendedFees from GET /v1/fees/recommended, sat/vB.
type RecommendedFees struct {
	FastestFee  int64 `json:"fastestFee"`
	HalfHourFee int64 `json:"halfHourFee"`
	HourFee     int64 `json:"hourFee"`
	EconomyFee  int64 `json:"economyFee"`
	MinimumFee  int64 `json:"minimumFee"`
}

// ProjectedBlock from GET /v1/fees/mempool-blocks
type ProjectedBlock struct {
	BlockSize  int64     `json:"blockSize"`
	BlockVSize float64   `json:"blockVSize"`
	NTx        int64     `json:"nTx"`
	TotalFees  int64     `json:"totalFees"`
	MedianFee  float64   `json:"medianFee"`
	FeeRange   []float64 `json:"feeRange"`
}

// DifficultyAdjustment from GET /v1/difficulty-adjustment
type DifficultyAdjustment struct {
	ProgressPercent       float64 `json:"progressPercent"`
	DifficultyChange      float64 `json:"difficultyChange"`
	EstimatedRetargetDate int64   `json:"estimatedRetargetDate"`
	RemainingBlocks       int64   `json:"remainingBlocks"`
	RemainingTime         int64   `json:"remainingTime"`
	PreviousRetarget      float64 `json:"previousRetarget"`
	NextRetargetHeight    int64   `json:"nextRetargetHeight"`
	TimeAvg               int64   `json:"timeAvg"`
	TimeOffset            int64   `json:"timeOffset"`
}

// AddressValidation from GET /v1/validate-address/{address}
type AddressValidation struct {
	IsValid        bool   `json:"isvalid"`
	Address        string `json:"address"`
	ScriptPubKey   string `json:"scriptPubKey"`
	IsScript       bool   `json:"isscript"`
	IsWitness      bool   `json:"iswitness"`
	WitnessVersion int    `json:"witness_version"`
	WitnessProgram string `json:"witness_program"`
}
