package macros

import (
	"testing"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/util/ptrutil"
	"github.com/stretchr/testify/assert"
)

func TestWonBidProviderFallbacks(t *testing.T) {
	tests := []struct {
		name string
		bid  *adapters.WonBid
		want map[string]string
	}{
		{
			name: "primary fields win",
			bid: &adapters.WonBid{
				AuctionID:  "a1",
				RequestID:  "r1",
				ImpID:      "imp1",
				AdUnitCode: "div-1",
				SeatID:     "seat1",
				AdID:       "ad1",
				CreativeID: "cr1",
				Price:      ptrutil.ToPtr(2.5),
				Currency:   "PLN",
			},
			want: map[string]string{
				MacroKeyAuctionID:  "a1",
				MacroKeyBidID:      "r1",
				MacroKeyImpID:      "imp1",
				MacroKeySeatID:     "seat1",
				MacroKeyAdID:       "ad1",
				MacroKeyPrice:      "2.5",
				MacroKeyCurrency:   "PLN",
				MacroKeyCreativeID: "cr1",
			},
		},
		{
			name: "fallback fields",
			bid: &adapters.WonBid{
				RequestID:  "r1",
				AdUnitCode: "div-1",
				AdID:       "ad1",
			},
			want: map[string]string{
				MacroKeyAuctionID:  "r1",
				MacroKeyBidID:      "r1",
				MacroKeyImpID:      "div-1",
				MacroKeySeatID:     "",
				MacroKeyAdID:       "ad1",
				MacroKeyPrice:      "",
				MacroKeyCurrency:   "",
				MacroKeyCreativeID: "",
			},
		},
		{
			name: "bid id falls back to ad id",
			bid:  &adapters.WonBid{AdID: "ad1"},
			want: map[string]string{
				MacroKeyAuctionID:  "",
				MacroKeyBidID:      "ad1",
				MacroKeyImpID:      "",
				MacroKeySeatID:     "",
				MacroKeyAdID:       "ad1",
				MacroKeyPrice:      "",
				MacroKeyCurrency:   "",
				MacroKeyCreativeID: "",
			},
		},
		{
			name: "nil bid resolves everything to empty",
			bid:  nil,
			want: map[string]string{
				MacroKeyAuctionID:  "",
				MacroKeyBidID:      "",
				MacroKeyImpID:      "",
				MacroKeySeatID:     "",
				MacroKeyAdID:       "",
				MacroKeyPrice:      "",
				MacroKeyCurrency:   "",
				MacroKeyCreativeID: "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewWonBidProvider(tt.bid)
			assert.Equal(t, tt.want, provider.GetAllMacros(Keys()))
		})
	}
}

func TestWonBidProviderPriceFormatting(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{price: 2.5, want: "2.5"},
		{price: 0, want: "0"},
		{price: 3, want: "3"},
		{price: 0.125, want: "0.125"},
		{price: 1e21, want: "1000000000000000000000"},
	}

	for _, tt := range tests {
		provider := NewWonBidProvider(&adapters.WonBid{Price: ptrutil.ToPtr(tt.price)})
		got, ok := provider.GetMacro(MacroKeyPrice)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got)
	}
}

func TestWonBidProviderEscapesValues(t *testing.T) {
	provider := NewWonBidProvider(&adapters.WonBid{AuctionID: "a b&c=d"})

	got, ok := provider.GetMacro(MacroKeyAuctionID)

	assert.True(t, ok)
	assert.Equal(t, "a+b%26c%3Dd", got)
}

func TestWonBidProviderUnknownKey(t *testing.T) {
	provider := NewWonBidProvider(&adapters.WonBid{AuctionID: "a1"})

	got, ok := provider.GetMacro("AUCTION_LOSS")

	assert.False(t, ok)
	assert.Empty(t, got)
	assert.NotContains(t, provider.GetAllMacros([]string{"AUCTION_LOSS"}), "AUCTION_LOSS")
}
