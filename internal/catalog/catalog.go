// Package catalog exposes the versioned, read-only requirement catalog: the
// per-invoice-type table of required fields that parameterizes validation
// prompts and the public requirements endpoint.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thelabelsunday/invoice-checker/constants"
)

//go:embed requirements.yaml
var requirementsYAML []byte

// Item is one required/optional field definition.
type Item struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Group is a titled set of field definitions.
type Group struct {
	Key             string   `yaml:"key" json:"key"`
	Description     string   `yaml:"description" json:"description"`
	ExpectedNames   []string `yaml:"expected_names,omitempty" json:"expected_names,omitempty"`
	ExpectedAddress string   `yaml:"expected_address,omitempty" json:"expected_address,omitempty"`
	Items           []Item   `yaml:"items" json:"items"`
}

// Requirements is the full field list for one invoice type.
type Requirements struct {
	Common       []Group `json:"common"`
	TypeSpecific []Group `json:"type_specific"`
}

// Catalog holds the parsed requirement table.
type Catalog struct {
	Version      string  `yaml:"version"`
	Common       []Group `yaml:"common"`
	PayPal       []Group `yaml:"paypal"`
	BankTransfer []Group `yaml:"bank_transfer"`
}

// Load parses the embedded catalog asset.
func Load() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(requirementsYAML, &c); err != nil {
		return nil, fmt.Errorf("parse requirements catalog: %w", err)
	}
	if len(c.Common) == 0 || len(c.PayPal) == 0 || len(c.BankTransfer) == 0 {
		return nil, fmt.Errorf("requirements catalog is incomplete")
	}
	return &c, nil
}

// MustLoad is Load for program startup paths where the embedded asset is
// known to be well-formed.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// ForType returns the complete requirements for an invoice type.
func (c *Catalog) ForType(t constants.InvoiceType) Requirements {
	groups := c.PayPal
	if t == constants.InvoiceTypeBankTransfer {
		groups = c.BankTransfer
	}
	return Requirements{Common: c.Common, TypeSpecific: groups}
}

// PromptText renders the requirements as the markdown block embedded in
// validation prompts.
func (c *Catalog) PromptText(t constants.InvoiceType) string {
	var b strings.Builder

	typeName := "PAYPAL"
	if t == constants.InvoiceTypeBankTransfer {
		typeName = "BANKOVERFØRSEL"
	}
	fmt.Fprintf(&b, "# FAKTURAKRAV FOR %s\n\n", typeName)

	b.WriteString("## GRUNDLÆGGENDE FAKTURAINFORMATION (PÅKRÆVET)\n\n")
	headings := map[string]string{
		"invoice_details": "Fakturaoplysninger:",
		"seller_info":     "Afsenderoplysninger:",
		"buyer_info":      "Modtageroplysninger (Sunday):",
	}
	for _, g := range c.Common {
		if h, ok := headings[g.Key]; ok {
			fmt.Fprintf(&b, "### %s\n", h)
		} else {
			fmt.Fprintf(&b, "### %s\n", g.Description)
		}
		writeItems(&b, g.Items)
		if len(g.ExpectedNames) > 0 {
			fmt.Fprintf(&b, "  - Forventede navne: %s\n", strings.Join(g.ExpectedNames, ", "))
		}
		if g.ExpectedAddress != "" {
			fmt.Fprintf(&b, "  - Forventet adresse: %s\n", g.ExpectedAddress)
		}
		b.WriteString("\n")
	}

	if t == constants.InvoiceTypePayPal {
		b.WriteString("## PAYPAL-SPECIFIKKE KRAV (PÅKRÆVET)\n\n")
		b.WriteString("### Personlige oplysninger til skatteindberetning:\n")
		for _, g := range c.PayPal {
			writeItems(&b, g.Items)
		}
	} else {
		b.WriteString("## BANKOVERFØRSELS-SPECIFIKKE KRAV (PÅKRÆVET)\n\n")
		subHeadings := map[string]string{
			"recipient_info": "Modtageroplysninger (den person der skal betales):",
			"bank_details":   "Bankoplysninger:",
		}
		for i, g := range c.BankTransfer {
			if i > 0 {
				b.WriteString("\n")
			}
			if h, ok := subHeadings[g.Key]; ok {
				fmt.Fprintf(&b, "### %s\n", h)
			}
			writeItems(&b, g.Items)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeItems(b *strings.Builder, items []Item) {
	for _, it := range items {
		fmt.Fprintf(b, "- **%s**: %s\n", it.Name, it.Description)
	}
}
