/*
Package openrtb_ext defines the input validation for this server's extensions to the OpenRTB 2.6 spec.

Most of these are defined by simple contract classes.

One notable exception is the bidder params, which have more complex validation rules.
These are validated by a BidderParamValidator, which relies on the json-schemas from
static/bidder-params/{bidder}.json
*/
package openrtb_ext
