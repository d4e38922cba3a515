package ortb

import (
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
)

func validateBanner(banner *openrtb2.Banner, impIndex int, isInterstitial bool) error {
	if banner == nil {
		return nil
	}

	if banner.W != nil && *banner.W < 0 {
		return fmt.Errorf("request.imp[%d].banner.w must be a positive number", impIndex)
	}
	if banner.H != nil && *banner.H < 0 {
		return fmt.Errorf("request.imp[%d].banner.h must be a positive number", impIndex)
	}

	hasRootSize := banner.H != nil && banner.W != nil && *banner.H > 0 && *banner.W > 0
	if !hasRootSize && len(banner.Format) == 0 && !isInterstitial {
		return fmt.Errorf("request.imp[%d].banner has no sizes. Define \"w\" and \"h\", or include \"format\" elements.", impIndex)
	}

	for i := range banner.Format {
		if err := validateFormat(&banner.Format[i], impIndex, i); err != nil {
			return err
		}
	}

	return nil
}

func validateFormat(format *openrtb2.Format, impIndex, formatIndex int) error {
	usesHW := format.W != 0 || format.H != 0
	usesRatios := format.WMin != 0 || format.WRatio != 0 || format.HRatio != 0

	switch {
	case format.W < 0, format.H < 0, format.WRatio < 0, format.HRatio < 0, format.WMin < 0:
		return fmt.Errorf("request.imp[%d].banner.format[%d] sizes must be positive numbers", impIndex, formatIndex)
	case usesHW && usesRatios:
		return fmt.Errorf("request.imp[%d].banner.format[%d] should define *either* {w, h} *or* {wmin, wratio, hratio}, but not both.", impIndex, formatIndex)
	case !usesHW && !usesRatios:
		return fmt.Errorf("request.imp[%d].banner.format[%d] should define *either* {w, h} *or* {wmin, wratio, hratio} to be non-zero.", impIndex, formatIndex)
	case usesHW && (format.W == 0 || format.H == 0):
		return fmt.Errorf("request.imp[%d].banner.format[%d] must define non-zero \"h\" and \"w\" properties.", impIndex, formatIndex)
	case usesRatios && (format.WMin == 0 || format.WRatio == 0 || format.HRatio == 0):
		return fmt.Errorf("request.imp[%d].banner.format[%d] must define non-zero \"wmin\", \"wratio\", and \"hratio\" properties.", impIndex, formatIndex)
	}
	return nil
}
