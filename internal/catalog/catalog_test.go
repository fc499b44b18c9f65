package catalog

import (
	"strings"
	"testing"

	"github.com/thelabelsunday/invoice-checker/constants"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Version == "" {
		t.Fatal("catalog version missing")
	}
	if len(c.Common) != 3 {
		t.Fatalf("common groups = %d, want 3", len(c.Common))
	}
}

func TestForType(t *testing.T) {
	c := MustLoad()
	tests := []struct {
		name string
		typ  constants.InvoiceType
		item string
	}{
		{"paypal carries tax fields", constants.InvoiceTypePayPal, "birth_date"},
		{"bank carries bank details", constants.InvoiceTypeBankTransfer, "iban"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := c.ForType(tt.typ)
			if len(req.Common) == 0 || len(req.TypeSpecific) == 0 {
				t.Fatal("requirements must carry common and type-specific groups")
			}
			found := false
			for _, g := range req.TypeSpecific {
				for _, it := range g.Items {
					if it.ID == tt.item {
						found = true
					}
				}
			}
			if !found {
				t.Fatalf("item %q not found for %s", tt.item, tt.typ)
			}
		})
	}
}

func TestForTypeDoesNotLeakAcrossTypes(t *testing.T) {
	c := MustLoad()
	for _, g := range c.ForType(constants.InvoiceTypeBankTransfer).TypeSpecific {
		for _, it := range g.Items {
			if it.ID == "birth_date" {
				t.Fatal("bank requirements must not include PayPal tax fields")
			}
		}
	}
}

func TestPromptText(t *testing.T) {
	c := MustLoad()

	paypal := c.PromptText(constants.InvoiceTypePayPal)
	for _, want := range []string{
		"# FAKTURAKRAV FOR PAYPAL",
		"## GRUNDLÆGGENDE FAKTURAINFORMATION (PÅKRÆVET)",
		"## PAYPAL-SPECIFIKKE KRAV (PÅKRÆVET)",
		"Forventede navne: The Label Sunday",
		"Vognmagergade 7",
	} {
		if !strings.Contains(paypal, want) {
			t.Fatalf("paypal prompt text missing %q", want)
		}
	}
	if strings.Contains(paypal, "BANKOVERFØRSELS-SPECIFIKKE") {
		t.Fatal("paypal prompt text must not carry bank sections")
	}

	bank := c.PromptText(constants.InvoiceTypeBankTransfer)
	for _, want := range []string{
		"# FAKTURAKRAV FOR BANKOVERFØRSEL",
		"## BANKOVERFØRSELS-SPECIFIKKE KRAV (PÅKRÆVET)",
		"### Bankoplysninger:",
	} {
		if !strings.Contains(bank, want) {
			t.Fatalf("bank prompt text missing %q", want)
		}
	}
}
