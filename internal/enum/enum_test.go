package enum_test

import (
	"testing"

	"github.com/mbg-dapur/api/internal/enum"
)

func TestIsValidMealSession(t *testing.T) {
	for _, s := range []string{"pagi", "siang", "malam"} {
		if !enum.IsValidMealSession(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "PAGI", "sore", "night"} {
		if enum.IsValidMealSession(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestIsValidUserRole(t *testing.T) {
	for _, r := range []string{"OWNER", "ADMIN", "AHLI_GIZI", "AKUNTAN", "CHEF"} {
		if !enum.IsValidUserRole(r) {
			t.Errorf("%q should be valid", r)
		}
	}
	if enum.IsValidUserRole("CASHIER") {
		t.Error("CASHIER should be invalid")
	}
}
