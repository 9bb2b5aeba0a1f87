package utils

import (
	"fmt"

	"frs/src/types"
)

// Prices are in the smallest currency unit. The client-declared amount
// is never charged; ComputeAmount is the only pricing authority.
const (
	PRICE_DAY_PASS    int64 = 500
	PRICE_FULL_PASS   int64 = 1500
	PRICE_EVENTS_PASS int64 = 300
	PRICE_PRO_SHOW    int64 = 400
	GROUP_MEMBER_RATE int64 = 250
	MAX_GROUP_MEMBERS uint  = 10
)

var fixedPrices = map[types.PassType]int64{
	types.PASS_DAY:      PRICE_DAY_PASS,
	types.PASS_FULL:     PRICE_FULL_PASS,
	types.PASS_EVENTS:   PRICE_EVENTS_PASS,
	types.PASS_PRO_SHOW: PRICE_PRO_SHOW,
}

func ComputeAmount(passType types.PassType, memberCount uint) (int64, error) {
	if passType.IsGroup() {
		if memberCount == 0 {
			return 0, fmt.Errorf("group pass requires at least one member")
		}
		if memberCount > MAX_GROUP_MEMBERS {
			return 0, fmt.Errorf("group pass is limited to %d members", MAX_GROUP_MEMBERS)
		}
		return int64(memberCount) * GROUP_MEMBER_RATE, nil
	}
	price, ok := fixedPrices[passType]
	if !ok {
		return 0, fmt.Errorf("no price configured for pass type %q", passType)
	}
	return price, nil
}
