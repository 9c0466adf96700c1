package service

import (
	"strconv"
	"time"
)

const (
	orgFactor      = 1_000_000_000_000
	customerFactor = 1_000_000
)

// invoiceNumber derives the business key from the tenant scope and creation
// time: INV-<base36(millis + org*10^12 + customer*10^6)>. A base36 uint64 is
// at most 13 characters, keeping the full number within 21.
func invoiceNumber(orgID, customerID int64, at time.Time) string {
	v := uint64(at.UnixMilli()) + uint64(orgID)*orgFactor + uint64(customerID)*customerFactor
	return "INV-" + strconv.FormatUint(v, 36)
}
