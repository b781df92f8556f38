package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Receipt numbers keep the historical PMT-YYYYMM / CODE-YYYY shape but use a
// random UUID fragment for the low-order part instead of a timestamp slice,
// which was collidable under concurrent sub-second requests.

func NewPaymentReceiptNo(now time.Time) string {
	return fmt.Sprintf("PMT-%04d%02d-%s", now.Year(), int(now.Month()), receiptSuffix())
}

func NewRegistrationReceiptNo(now time.Time) string {
	return fmt.Sprintf("CODE-%04d-%s", now.Year(), receiptSuffix())
}

func receiptSuffix() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
