package allegro

import (
	"context"

	"github.com/allegro/ortb-bridge/adapters"
	"github.com/allegro/ortb-bridge/macros"
	"github.com/golang/glog"
)

// OnBidWon fires the bid's burl, with its macros expanded, when impression pixels are enabled.
func (a *adapter) OnBidWon(_ context.Context, bid *adapters.WonBid) {
	if bid == nil || !a.settings.triggerImpressionPixel() {
		return
	}
	url, ok := a.macros.Replace(bid.BURL, macros.NewWonBidProvider(bid))
	if !ok {
		return
	}
	glog.V(2).Infof("Firing %s impression pixel for bid %s", a.bidderName, bid.RequestID)
	a.firer.Fire(a.bidderName, url)
}
