package metrics

import (
	"time"

	"github.com/allegro/ortb-bridge/openrtb_ext"
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordRequest mock
func (me *MetricsEngineMock) RecordRequest(labels Labels) {
	me.Called(labels)
}

// RecordRequestTime mock
func (me *MetricsEngineMock) RecordRequestTime(labels Labels, length time.Duration) {
	me.Called(labels, length)
}

// RecordAdapterRequest mock
func (me *MetricsEngineMock) RecordAdapterRequest(labels AdapterLabels) {
	me.Called(labels)
}

// RecordAdapterTime mock
func (me *MetricsEngineMock) RecordAdapterTime(labels AdapterLabels, length time.Duration) {
	me.Called(labels, length)
}

// RecordAdapterBidReceived mock
func (me *MetricsEngineMock) RecordAdapterBidReceived(labels AdapterLabels, bidType openrtb_ext.BidType, hasAdm bool) {
	me.Called(labels, bidType, hasAdm)
}

// RecordAdapterPrice mock
func (me *MetricsEngineMock) RecordAdapterPrice(labels AdapterLabels, cpm float64) {
	me.Called(labels, cpm)
}

// RecordExtensionRelocation mock
func (me *MetricsEngineMock) RecordExtensionRelocation(adapter openrtb_ext.BidderName, moved int) {
	me.Called(adapter, moved)
}

// RecordPixel mock
func (me *MetricsEngineMock) RecordPixel(adapter openrtb_ext.BidderName, success bool) {
	me.Called(adapter, success)
}

// RecordWonBidStore mock
func (me *MetricsEngineMock) RecordWonBidStore(action WonBidStoreAction, result WonBidStoreResult) {
	me.Called(action, result)
}
