// Package mapping loads the chart-of-accounts configuration that drives the
// posting engine: tax-rate indicators, counter accounts, rate override rules,
// voucher accounts and the Beancount account names used for ledger export.
package mapping

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

//go:embed default.yaml
var defaultMapping []byte

// DateLayout is the layout of override rule boundaries.
const DateLayout = "2006-01-02"

// TaxKeyMapping lists the raw indicators that resolve to one tax key.
type TaxKeyMapping struct {
	Key         string   `yaml:"key"`
	Rates       []string `yaml:"rates"`
	Description string   `yaml:"description"`
}

// CounterAccountMapping holds the goods and service accounts of one tax key.
type CounterAccountMapping struct {
	TaxKey  string `yaml:"tax_key"`
	Goods   string `yaml:"goods"`
	Service string `yaml:"service"`
}

// OverrideMapping is the YAML form of posting.OverrideRule.
type OverrideMapping struct {
	Name    string `yaml:"name"`
	Account string `yaml:"account"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	TaxKey  string `yaml:"tax_key"`
	Label   string `yaml:"label"`
}

// AccountMapping maps an account number to a Beancount account name.
type AccountMapping struct {
	Number    string `yaml:"number"`
	Beancount string `yaml:"beancount"`
}

// MappingConfig represents the complete mapping file.
type MappingConfig struct {
	IntrinsicAccount string `yaml:"intrinsic_account"`
	DefaultAccount   string `yaml:"default_account"`
	TaxKeys          struct {
		Exempt     string          `yaml:"exempt"`
		Unresolved string          `yaml:"unresolved"`
		Indicators []TaxKeyMapping `yaml:"indicators"`
	} `yaml:"tax_keys"`
	CounterAccounts []CounterAccountMapping `yaml:"counter_accounts"`
	Collective      struct {
		TextPrefix string `yaml:"text_prefix"`
	} `yaml:"collective"`
	Overrides []OverrideMapping `yaml:"overrides"`
	Vouchers  struct {
		IssueAccounts     []string `yaml:"issue_accounts"`
		RedemptionAccount string   `yaml:"redemption_account"`
	} `yaml:"vouchers"`
	Beancount struct {
		Currency string           `yaml:"currency"`
		Accounts []AccountMapping `yaml:"accounts"`
	} `yaml:"beancount"`
}

// Mapper gives validated access to a mapping file.
type Mapper struct {
	config       MappingConfig
	descriptions map[posting.TaxKey]string
	beancount    map[string]string
}

// NewMapper creates a Mapper from a YAML file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in SKR03 mapping.
func Default() (*Mapper, error) {
	return Parse(defaultMapping)
}

// Parse creates a Mapper from YAML and validates it against the engine.
func Parse(data []byte) (*Mapper, error) {
	var config MappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m := &Mapper{
		config:       config,
		descriptions: make(map[posting.TaxKey]string),
		beancount:    make(map[string]string),
	}
	m.buildMappingMaps()

	if err := m.validateEngine(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Mapper) buildMappingMaps() {
	for _, t := range m.config.TaxKeys.Indicators {
		if t.Description != "" {
			m.descriptions[posting.TaxKey(t.Key)] = t.Description
		}
	}
	for _, a := range m.config.Beancount.Accounts {
		m.beancount[a.Number] = a.Beancount
	}
}

func (m *Mapper) validateEngine() error {
	cfg, err := m.EngineConfig(time.UTC)
	if err != nil {
		return err
	}
	if _, err := posting.NewEngine(cfg); err != nil {
		return fmt.Errorf("mapping rejected: %w", err)
	}
	return nil
}

// EngineConfig converts the mapping into the engine's configuration.
func (m *Mapper) EngineConfig(loc *time.Location) (posting.Config, error) {
	indicators := make(map[string]posting.TaxKey)
	for _, t := range m.config.TaxKeys.Indicators {
		for _, rate := range t.Rates {
			if prev, ok := indicators[rate]; ok && prev != posting.TaxKey(t.Key) {
				return posting.Config{}, fmt.Errorf("%w: rate %q maps to both %q and %q",
					posting.ErrInvalidConfig, rate, prev, t.Key)
			}
			indicators[rate] = posting.TaxKey(t.Key)
		}
	}

	accounts := make(map[posting.AccountKey]string)
	for _, c := range m.config.CounterAccounts {
		key := posting.TaxKey(c.TaxKey)
		if c.Goods != "" {
			accounts[posting.AccountKey{Category: posting.CategoryGoods, TaxKey: key}] = c.Goods
		}
		if c.Service != "" {
			accounts[posting.AccountKey{Category: posting.CategoryService, TaxKey: key}] = c.Service
		}
	}

	rules := make([]posting.OverrideRule, 0, len(m.config.Overrides))
	for _, o := range m.config.Overrides {
		rule, err := o.rule()
		if err != nil {
			return posting.Config{}, err
		}
		rules = append(rules, rule)
	}

	return posting.Config{
		Indicators:       indicators,
		ExemptKey:        posting.TaxKey(m.config.TaxKeys.Exempt),
		UnresolvedKey:    posting.TaxKey(m.config.TaxKeys.Unresolved),
		CounterAccounts:  accounts,
		DefaultAccount:   m.config.DefaultAccount,
		IntrinsicAccount: m.config.IntrinsicAccount,
		TextPrefix:       m.config.Collective.TextPrefix,
		Overrides:        rules,
		Vouchers: posting.VoucherAccounts{
			Issue:      append([]string(nil), m.config.Vouchers.IssueAccounts...),
			Redemption: m.config.Vouchers.RedemptionAccount,
		},
		Location: loc,
	}, nil
}

func (o OverrideMapping) rule() (posting.OverrideRule, error) {
	from, err := time.Parse(DateLayout, o.From)
	if err != nil {
		return posting.OverrideRule{}, fmt.Errorf("%w: override %q: invalid from date %q", posting.ErrInvalidConfig, o.Name, o.From)
	}
	to, err := time.Parse(DateLayout, o.To)
	if err != nil {
		return posting.OverrideRule{}, fmt.Errorf("%w: override %q: invalid to date %q", posting.ErrInvalidConfig, o.Name, o.To)
	}
	return posting.OverrideRule{
		Name:    o.Name,
		Account: o.Account,
		From:    from,
		To:      to,
		TaxKey:  posting.TaxKey(o.TaxKey),
		Label:   o.Label,
	}, nil
}

// GetTaxKeyDescription returns the description of a tax key, or "" if none is configured.
func (m *Mapper) GetTaxKeyDescription(key posting.TaxKey) string {
	return m.descriptions[key]
}

// GetBeancountAccount returns the Beancount account for an account number.
// Returns empty string if no mapping is found.
func (m *Mapper) GetBeancountAccount(number string) string {
	return m.beancount[number]
}

// GetAllBeancountAccounts returns a copy of the account number mapping.
func (m *Mapper) GetAllBeancountAccounts() map[string]string {
	result := make(map[string]string, len(m.beancount))
	for k, v := range m.beancount {
		result[k] = v
	}
	return result
}

// Currency returns the ledger currency, EUR if not configured.
func (m *Mapper) Currency() string {
	if m.config.Beancount.Currency == "" {
		return "EUR"
	}
	return m.config.Beancount.Currency
}
