package models

// Coin is one row of the /coins/markets listing.
type Coin struct {
	ID                           string   `json:"id" validate:"required"`
	Symbol                       string   `json:"symbol" validate:"required"`
	Name                         string   `json:"name" validate:"required"`
	Image                        string   `json:"image"`
	CurrentPrice                 float64  `json:"current_price" validate:"gte=0"`
	MarketCap                    float64  `json:"market_cap" validate:"gte=0"`
	MarketCapRank                int      `json:"market_cap_rank" validate:"gte=0"`
	FullyDilutedValuation        float64  `json:"fully_diluted_valuation"`
	TotalVolume                  float64  `json:"total_volume" validate:"gte=0"`
	High24h                      float64  `json:"high_24h"`
	Low24h                       float64  `json:"low_24h"`
	PriceChange24h               float64  `json:"price_change_24h"`
	PriceChangePercentage24h     float64  `json:"price_change_percentage_24h"`
	MarketCapChange24h           float64  `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h float64  `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            float64  `json:"circulating_supply"`
	TotalSupply                  *float64 `json:"total_supply"` // null for uncapped coins
	MaxSupply                    *float64 `json:"max_supply"`
	ATH                          float64  `json:"ath"`
	ATHChangePercentage          float64  `json:"ath_change_percentage"`
	ATHDate                      string   `json:"ath_date"`
	ATL                          float64  `json:"atl"`
	ATLChangePercentage          float64  `json:"atl_change_percentage"`
	ATLDate                      string   `json:"atl_date"`
	LastUpdated                  string   `json:"last_updated"`
}

type CurrencyValue struct {
	USD float64 `json:"usd" validate:"gte=0"`
}

type CoinMarketData struct {
	CurrentPrice             CurrencyValue `json:"current_price"`
	MarketCap                CurrencyValue `json:"market_cap"`
	TotalVolume              CurrencyValue `json:"total_volume"`
	CirculatingSupply        float64       `json:"circulating_supply"`
	TotalSupply              *float64      `json:"total_supply"`
	MaxSupply                *float64      `json:"max_supply"`
	ATH                      CurrencyValue `json:"ath"`
	ATL                      CurrencyValue `json:"atl"`
	PriceChangePercentage24h float64       `json:"price_change_percentage_24h"`
}

type CoinLinks struct {
	Homepage                  []string `json:"homepage"`
	BlockchainSite            []string `json:"blockchain_site"`
	OfficialForumURL          []string `json:"official_forum_url"`
	ChatURL                   []string `json:"chat_url"`
	AnnouncementURL           []string `json:"announcement_url"`
	TwitterScreenName         string   `json:"twitter_screen_name"`
	TelegramChannelIdentifier string   `json:"telegram_channel_identifier"`
	SubredditURL              string   `json:"subreddit_url"`
	ReposURL                  struct {
		Github    []string `json:"github"`
		Bitbucket []string `json:"bitbucket"`
	} `json:"repos_url"`
}

type CoinDetail struct {
	ID          string `json:"id" validate:"required"`
	Symbol      string `json:"symbol" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description struct {
		EN string `json:"en"`
	} `json:"description"`
	MarketCapRank int            `json:"market_cap_rank"`
	MarketData    CoinMarketData `json:"market_data"`
	Links         CoinLinks      `json:"links"`
	Image         struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
}

// ChartPoint is a [timestamp_ms, value] pair as served by the API.
type ChartPoint [2]float64

type MarketChart struct {
	Prices       []ChartPoint `json:"prices" validate:"required"`
	MarketCaps   []ChartPoint `json:"market_caps"`
	TotalVolumes []ChartPoint `json:"total_volumes"`
}

type GlobalMarketData struct {
	Data struct {
		ActiveCryptocurrencies int           `json:"active_cryptocurrencies" validate:"gte=0"`
		TotalMarketCap         CurrencyValue `json:"total_market_cap"`
		TotalVolume            CurrencyValue `json:"total_volume"`
		MarketCapPercentage    struct {
			BTC float64 `json:"btc"`
		} `json:"market_cap_percentage"`
		MarketCapChangePercentage24hUSD float64 `json:"market_cap_change_percentage_24h_usd"`
	} `json:"data"`
}

type SearchCoin struct {
	ID            string `json:"id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
}

type SearchExchange struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name"`
	MarketType string `json:"market_type"`
	Thumb      string `json:"thumb"`
	Large      string `json:"large"`
}

type SearchCategory struct {
	Name string `json:"name" validate:"required"`
}

type SearchNFT struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Thumb  string `json:"thumb"`
}

type SearchResult struct {
	Coins      []SearchCoin     `json:"coins"`
	Exchanges  []SearchExchange `json:"exchanges"`
	Categories []SearchCategory `json:"categories"`
	NFTs       []SearchNFT      `json:"nfts"`
}

// TrendingCoin is the flattened form of a /search/trending entry.
type TrendingCoin struct {
	ID            string  `json:"id" validate:"required"`
	Symbol        string  `json:"symbol" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Thumb         string  `json:"thumb"`
	MarketCapRank int     `json:"market_cap_rank"`
	PriceBTC      float64 `json:"price_btc" validate:"gte=0"`
	Score         int     `json:"score"`
}
