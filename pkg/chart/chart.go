// Package chart loads the chart-of-accounts mapping that ties bank
// accounts to ledger accounts. The mapping is maintained externally as a
// YAML file and is a read-only input to the posting engine.
package chart

import (
	"fmt"
	"os"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/ledger"
	"gopkg.in/yaml.v3"
)

// Mapping ties one bank account to its ledger account and an optional
// fixed contra account. A Contra of "" or the NA sentinel means no
// override is configured.
type Mapping struct {
	IBAN          string `yaml:"iban"`
	Bank          string `yaml:"bank"`
	LedgerAccount string `yaml:"account"`
	Contra        string `yaml:"contra"`
}

type chartFile struct {
	Accounts []Mapping `yaml:"accounts"`
}

// Chart is the loaded chart-of-accounts mapping, keyed by IBAN.
type Chart struct {
	byIBAN map[string]Mapping
	order  []string
}

// Load reads a chart-of-accounts mapping from a YAML file.
func Load(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file: %w", err)
	}

	var file chartFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chart YAML: %w", err)
	}

	return FromMappings(file.Accounts), nil
}

// FromMappings builds a Chart from already-parsed mappings.
func FromMappings(mappings []Mapping) *Chart {
	c := &Chart{byIBAN: make(map[string]Mapping, len(mappings))}
	for _, m := range mappings {
		if _, dup := c.byIBAN[m.IBAN]; !dup {
			c.order = append(c.order, m.IBAN)
		}
		c.byIBAN[m.IBAN] = m
	}
	return c
}

// Lookup returns the mapping for an IBAN, or false if none is configured.
func (c *Chart) Lookup(iban string) (Mapping, bool) {
	m, ok := c.byIBAN[iban]
	return m, ok
}

// IBANs returns all configured bank accounts in file order.
func (c *Chart) IBANs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// FixedContra returns the configured contra override for the mapping, or
// NotAssigned when none is set or the override would post against the
// owning ledger account itself.
func (m Mapping) FixedContra() string {
	if m.Contra == "" || m.Contra == ledger.NotAssigned || m.Contra == m.LedgerAccount {
		return ledger.NotAssigned
	}
	return m.Contra
}
