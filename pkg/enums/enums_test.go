package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	cases := map[string]PaymentMethod{
		"eft":   PaymentMethodEFT,
		" COD ": PaymentMethodCOD,
		"yoco":  PaymentMethodYoco,
	}
	for raw, want := range cases {
		got, err := ParsePaymentMethod(raw)
		if err != nil {
			t.Fatalf("ParsePaymentMethod(%q) unexpected error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParsePaymentMethod(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected unknown payment method to fail")
	}
}

func TestInitialOrderStatus(t *testing.T) {
	if got := InitialOrderStatus(PaymentMethodCOD); got != OrderStatusConfirmed {
		t.Fatalf("cod should start confirmed, got %s", got)
	}
	for _, method := range []PaymentMethod{PaymentMethodEFT, PaymentMethodYoco} {
		if got := InitialOrderStatus(method); got != OrderStatusPending {
			t.Fatalf("%s should start pending, got %s", method, got)
		}
	}
}

func TestParseCookieConsentDefaultsToUnset(t *testing.T) {
	got, err := ParseCookieConsent("")
	if err != nil || got != CookieConsentUnset {
		t.Fatalf("expected unset, got %q err=%v", got, err)
	}
	if _, err := ParseCookieConsent("maybe"); err == nil {
		t.Fatal("expected invalid consent to fail")
	}
}

func TestParseProductSort(t *testing.T) {
	got, err := ParseProductSort("")
	if err != nil || got != ProductSortNewest {
		t.Fatalf("expected newest default, got %q err=%v", got, err)
	}
	if got, _ := ParseProductSort("price-desc"); got != ProductSortPriceDesc {
		t.Fatalf("unexpected sort %q", got)
	}
	if _, err := ParseProductSort("random"); err == nil {
		t.Fatal("expected invalid sort to fail")
	}
}
