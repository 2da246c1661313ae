package birdeye

// TokenOverview is the subset of Birdeye's token_overview response
// the tracker consumes. Short windows are 5 minutes, long windows one
// hour.
type TokenOverview struct {
	Price        float64 `json:"price"`
	MarketCap    float64 `json:"market_cap"`
	Liquidity    float64 `json:"liquidity"`
	Holders      int64   `json:"holders"`
	TxCount5m    int64   `json:"tx_count_5m"`
	TxCount1h    int64   `json:"tx_count_1h"`
	Volume5m     float64 `json:"volume_5m"`
	Volume1h     float64 `json:"volume_1h"`
	BuyVolume5m  float64 `json:"buys_volume_5m"`
	SellVolume5m float64 `json:"sells_volume_5m"`
}

type overviewEnvelope struct {
	Success bool          `json:"success"`
	Data    TokenOverview `json:"data"`
}
