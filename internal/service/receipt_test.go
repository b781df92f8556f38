package service

import (
	"strings"
	"testing"
	"time"
)

func TestReceiptNumbers(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	pmt := NewPaymentReceiptNo(now)
	if !strings.HasPrefix(pmt, "PMT-202603-") {
		t.Errorf("unexpected payment receipt: %s", pmt)
	}
	if suffix := strings.TrimPrefix(pmt, "PMT-202603-"); len(suffix) != 8 {
		t.Errorf("expected 8-char suffix, got %q", suffix)
	}

	reg := NewRegistrationReceiptNo(now)
	if !strings.HasPrefix(reg, "CODE-2026-") {
		t.Errorf("unexpected registration receipt: %s", reg)
	}
}

func TestReceiptNumbers_Unique(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		r := NewPaymentReceiptNo(now)
		if seen[r] {
			t.Fatalf("duplicate receipt generated: %s", r)
		}
		seen[r] = true
	}
}
