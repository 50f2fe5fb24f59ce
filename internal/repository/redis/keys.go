package redis

import "fmt"

const ns = "tixengine:v1"

func KeyOfferingSummary(offeringID int64) string {
	return fmt.Sprintf("%s:offering:%d:summary", ns, offeringID)
}

func KeyOfferingCounts(offeringID int64) string {
	return fmt.Sprintf("%s:offering:%d:counts", ns, offeringID)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemPurchase(accountID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:purchases:%d:%s", ns, accountID, idemKey)
}

func ChannelOfferingsChanged() string {
	return ns + ":offerings:changed"
}
