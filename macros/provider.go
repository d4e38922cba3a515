package macros

import (
	"net/url"
	"strconv"

	"github.com/allegro/ortb-bridge/adapters"
)

const (
	MacroKeyAuctionID  = "AUCTION_ID"
	MacroKeyBidID      = "AUCTION_BID_ID"
	MacroKeyImpID      = "AUCTION_IMP_ID"
	MacroKeySeatID     = "AUCTION_SEAT_ID"
	MacroKeyAdID       = "AUCTION_AD_ID"
	MacroKeyPrice      = "AUCTION_PRICE"
	MacroKeyCurrency   = "AUCTION_CURRENCY"
	MacroKeyCreativeID = "CREATIVE_ID"
)

// Keys lists every macro a won bid can resolve.
func Keys() []string {
	return []string{
		MacroKeyAuctionID,
		MacroKeyBidID,
		MacroKeyImpID,
		MacroKeySeatID,
		MacroKeyAdID,
		MacroKeyPrice,
		MacroKeyCurrency,
		MacroKeyCreativeID,
	}
}

type Provider interface {
	// GetMacro returns the query escaped macro value for the given key.
	// ok is false when the key is not a known macro.
	GetMacro(key string) (value string, ok bool)
	// GetAllMacros returns the query escaped values of the given keys.
	GetAllMacros(keys []string) map[string]string
}

type macroProvider struct {
	macros map[string]string
}

// NewWonBidProvider resolves every known macro against the won bid. Each key takes the first
// non-empty field of its fallback chain, or the empty string.
func NewWonBidProvider(bid *adapters.WonBid) Provider {
	macroProvider := &macroProvider{macros: make(map[string]string, len(Keys()))}
	for _, key := range Keys() {
		macroProvider.macros[key] = ""
	}
	if bid != nil {
		macroProvider.populateWonBidMacros(bid)
	}
	return macroProvider
}

func (b *macroProvider) populateWonBidMacros(bid *adapters.WonBid) {
	b.macros[MacroKeyAuctionID] = firstNonEmpty(bid.AuctionID, bid.RequestID)
	b.macros[MacroKeyBidID] = firstNonEmpty(bid.RequestID, bid.AdID)
	b.macros[MacroKeyImpID] = firstNonEmpty(bid.ImpID, bid.AdUnitCode)
	b.macros[MacroKeySeatID] = bid.SeatID
	b.macros[MacroKeyAdID] = bid.AdID
	if bid.Price != nil {
		b.macros[MacroKeyPrice] = strconv.FormatFloat(*bid.Price, 'f', -1, 64)
	}
	b.macros[MacroKeyCurrency] = bid.Currency
	b.macros[MacroKeyCreativeID] = bid.CreativeID
}

func (b *macroProvider) GetMacro(key string) (string, bool) {
	value, ok := b.macros[key]
	if !ok {
		return "", false
	}
	return url.QueryEscape(value), true
}

func (b *macroProvider) GetAllMacros(keys []string) map[string]string {
	macroValues := map[string]string{}

	for _, key := range keys {
		if value, ok := b.GetMacro(key); ok {
			macroValues[key] = value
		}
	}
	return macroValues
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
