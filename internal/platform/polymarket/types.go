package polymarket

import (
	"encoding/json"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// flexString unmarshals from a JSON string or number, so trade IDs work
// whether the feed sends them quoted or bare.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// APIBuilderTrade is the wire shape of a single builder trade record.
type APIBuilderTrade struct {
	ID              flexString `json:"id"`
	Maker           string     `json:"maker"`
	Owner           string     `json:"owner"`
	Builder         string     `json:"builder"`
	Market          string     `json:"market"`
	AssetID         string     `json:"assetId"`
	Side            string     `json:"side"`
	SizeUSDC        string     `json:"sizeUsdc"`
	MatchTime       string     `json:"matchTime"`
	TransactionHash string     `json:"transactionHash"`
}

// APITradePage is the wire shape of one page of the builder trade feed. The
// trade records are kept as raw JSON so the original payload can be stored
// verbatim alongside the decoded fields.
type APITradePage struct {
	Trades     []json.RawMessage `json:"trades"`
	NextCursor string            `json:"next_cursor"`
	Count      int               `json:"count"`
	Limit      int               `json:"limit"`
}

// ToDomainPage decodes every record of the page into a domain.TradePage,
// pairing each decoded trade with its verbatim JSON.
func (p *APITradePage) ToDomainPage() (domain.TradePage, error) {
	page := domain.TradePage{
		NextCursor: p.NextCursor,
		Count:      p.Count,
		Limit:      p.Limit,
		Trades:     make([]domain.RawTrade, 0, len(p.Trades)),
	}

	for _, raw := range p.Trades {
		var t APIBuilderTrade
		if err := json.Unmarshal(raw, &t); err != nil {
			return domain.TradePage{}, err
		}
		page.Trades = append(page.Trades, domain.RawTrade{
			ID:              string(t.ID),
			Maker:           t.Maker,
			Owner:           t.Owner,
			Builder:         t.Builder,
			Market:          t.Market,
			AssetID:         t.AssetID,
			Side:            t.Side,
			SizeUSDC:        t.SizeUSDC,
			MatchTime:       t.MatchTime,
			TransactionHash: t.TransactionHash,
			Raw:             raw,
		})
	}

	return page, nil
}
