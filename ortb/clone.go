package ortb

import "github.com/prebid/openrtb/v20/openrtb2"

// CloneBidRequestPartial makes a copy of the request which a bidder may safely prune. The
// Imp slice and the request ext are copied, every other pointer is shared.
func CloneBidRequestPartial(s *openrtb2.BidRequest) *openrtb2.BidRequest {
	if s == nil {
		return nil
	}

	// Shallow Copy (Value Fields)
	c := *s

	// Deep Copy (Pointers)
	c.Imp = CloneImpSlice(s.Imp)
	c.Ext = cloneSlice(s.Ext)

	return &c
}

func CloneImpSlice(s []openrtb2.Imp) []openrtb2.Imp {
	if s == nil {
		return nil
	}

	c := make([]openrtb2.Imp, len(s))
	for i, imp := range s {
		imp.Ext = cloneSlice(imp.Ext)
		c[i] = imp
	}

	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}

	c := make([]T, len(s))
	copy(c, s)

	return c
}
