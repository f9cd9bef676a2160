package ge

// Wire types for the primary price API.
//
// The upstream naming is counterintuitive for trading: `low` is the price
// where sell orders fill instantly (insta-sell), `high` where buy orders fill
// instantly (insta-buy). Margin is high - low.

// latestResponse is the /latest endpoint payload, keyed by item id string.
type latestResponse struct {
	Data map[string]latestPrice `json:"data"`
}

type latestPrice struct {
	High     *int64 `json:"high"`
	HighTime *int64 `json:"highTime"`
	Low      *int64 `json:"low"`
	LowTime  *int64 `json:"lowTime"`
}

// intervalResponse is the /5m and /1h endpoint payload. The data map is
// keyed by item id string; the interval timestamp sits at the top level.
type intervalResponse struct {
	Data      map[string]intervalPrice `json:"data"`
	Timestamp int64                    `json:"timestamp"`
}

type intervalPrice struct {
	AvgHighPrice    *int64 `json:"avgHighPrice"`
	HighPriceVolume *int64 `json:"highPriceVolume"`
	AvgLowPrice     *int64 `json:"avgLowPrice"`
	LowPriceVolume  *int64 `json:"lowPriceVolume"`
}

// mappingEntry is one item of the /mapping endpoint payload.
type mappingEntry struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine"`
	Members  bool   `json:"members"`
	BuyLimit int    `json:"limit"`
	Value    int    `json:"value"`
	HighAlch int    `json:"highalch"`
	LowAlch  int    `json:"lowalch"`
	Icon     string `json:"icon"`
}
