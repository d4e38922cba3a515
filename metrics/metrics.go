package metrics

import (
	"time"

	"github.com/allegro/ortb-bridge/openrtb_ext"
)

// Labels defines the labels that can be attached to the metrics.
type Labels struct {
	RType         RequestType
	RequestStatus RequestStatus
}

// AdapterLabels defines the labels that can be attached to the adapter metrics.
type AdapterLabels struct {
	Adapter       openrtb_ext.BidderName
	AdapterBids   AdapterBid
	AdapterErrors map[AdapterError]struct{}
}

// Label typecasting. Se below the type definitions for possible values

// RequestType : Request type enumeration
type RequestType string

// RequestStatus : The request return status
type RequestStatus string

// AdapterBid : Whether or not the adapter returned bids
type AdapterBid string

// AdapterError : Errors which may have occurred during the adapter's execution
type AdapterError string

// WonBidStoreAction : The operation performed on the won bid store
type WonBidStoreAction string

// WonBidStoreResult : The outcome of a won bid store operation
type WonBidStoreResult string

// The demand sources
const (
	ReqTypeORTB2Web  RequestType = "openrtb2-web"
	ReqTypeORTB2App  RequestType = "openrtb2-app"
	ReqTypeORTB2DOOH RequestType = "openrtb2-dooh"
	ReqTypeEvent     RequestType = "event"
)

func RequestTypes() []RequestType {
	return []RequestType{
		ReqTypeORTB2Web,
		ReqTypeORTB2App,
		ReqTypeORTB2DOOH,
		ReqTypeEvent,
	}
}

// Request/return status
const (
	RequestStatusOK       RequestStatus = "ok"
	RequestStatusBadInput RequestStatus = "badinput"
	RequestStatusNotFound RequestStatus = "notfound"
	RequestStatusErr      RequestStatus = "err"
)

func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		RequestStatusOK,
		RequestStatusBadInput,
		RequestStatusNotFound,
		RequestStatusErr,
	}
}

// Adapter bid response status.
const (
	AdapterBidPresent AdapterBid = "bid"
	AdapterBidNone    AdapterBid = "nobid"
)

func AdapterBids() []AdapterBid {
	return []AdapterBid{
		AdapterBidPresent,
		AdapterBidNone,
	}
}

// Adapter execution status
const (
	AdapterErrorBadInput            AdapterError = "badinput"
	AdapterErrorBadServerResponse   AdapterError = "badserverresponse"
	AdapterErrorTimeout             AdapterError = "timeout"
	AdapterErrorFailedToRequestBids AdapterError = "failedtorequestbid"
	AdapterErrorUnknown             AdapterError = "unknown_error"
)

func AdapterErrors() []AdapterError {
	return []AdapterError{
		AdapterErrorBadInput,
		AdapterErrorBadServerResponse,
		AdapterErrorTimeout,
		AdapterErrorFailedToRequestBids,
		AdapterErrorUnknown,
	}
}

const (
	WonBidStoreSave WonBidStoreAction = "save"
	WonBidStoreGet  WonBidStoreAction = "get"
)

func WonBidStoreActions() []WonBidStoreAction {
	return []WonBidStoreAction{
		WonBidStoreSave,
		WonBidStoreGet,
	}
}

const (
	WonBidStoreOK    WonBidStoreResult = "ok"
	WonBidStoreMiss  WonBidStoreResult = "miss"
	WonBidStoreError WonBidStoreResult = "err"
)

func WonBidStoreResults() []WonBidStoreResult {
	return []WonBidStoreResult{
		WonBidStoreOK,
		WonBidStoreMiss,
		WonBidStoreError,
	}
}

// MetricsEngine is a generic interface to record metrics into the desired backend
// The first three metrics function fire off once per incoming request, so total metrics
// will equal the total number of incoming requests. The remaining 5 fire off per outgoing
// request to a bidder adapter, so will record a number of hits per incoming request. The
// two groups should be consistent within themselves, but comparing numbers between groups
// is generally not useful.
type MetricsEngine interface {
	RecordRequest(labels Labels)
	RecordRequestTime(labels Labels, length time.Duration)
	RecordAdapterRequest(labels AdapterLabels)
	RecordAdapterTime(labels AdapterLabels, length time.Duration)
	RecordAdapterBidReceived(labels AdapterLabels, bidType openrtb_ext.BidType, hasAdm bool)
	RecordAdapterPrice(labels AdapterLabels, cpm float64)
	// RecordExtensionRelocation counts the ext objects moved under vendor keys in one outbound request.
	RecordExtensionRelocation(adapter openrtb_ext.BidderName, moved int)
	RecordPixel(adapter openrtb_ext.BidderName, success bool)
	RecordWonBidStore(action WonBidStoreAction, result WonBidStoreResult)
}
