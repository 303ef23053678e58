package shared

import "fmt"

// ReportCacheVersionKey versions cached report payloads; bumping it
// invalidates every cached report at once.
const ReportCacheVersionKey = "report:version"

// SettlementListKey builds redis keys for cached partner settlement lists.
func SettlementListKey(partnerID int64) string {
	return fmt.Sprintf("settlement:partner:%d:list", partnerID)
}
