package posting

import (
	"fmt"
	"sort"
	"strings"
)

// AccountKey addresses the counter-account table.
type AccountKey struct {
	Category Category
	TaxKey   TaxKey
}

// Classifier derives the counter-account from category and tax key.
//
// Goods and service accounts live in one table so that a key defined for one
// category but not the other is caught when the classifier is built.
type Classifier struct {
	accounts       map[AccountKey]string
	defaultAccount string
}

// AccountResult is the outcome of a counter-account lookup.
type AccountResult struct {
	Account  string
	Fallback bool
}

// NewClassifier validates and copies the counter-account table. Every key in
// required must be defined for both categories.
func NewClassifier(accounts map[AccountKey]string, defaultAccount string, required ...TaxKey) (*Classifier, error) {
	if defaultAccount == "" {
		return nil, fmt.Errorf("%w: default account is empty", ErrInvalidConfig)
	}

	table := make(map[AccountKey]string, len(accounts))
	perCategory := map[Category]map[TaxKey]bool{
		CategoryGoods:   {},
		CategoryService: {},
	}
	for key, account := range accounts {
		if !key.Category.Valid() {
			return nil, fmt.Errorf("%w: counter account for unknown category %q", ErrInvalidConfig, key.Category)
		}
		if account == "" {
			return nil, fmt.Errorf("%w: empty counter account for %s/%s", ErrInvalidConfig, key.Category, key.TaxKey)
		}
		table[key] = account
		perCategory[key.Category][key.TaxKey] = true
	}

	for _, key := range required {
		for _, category := range []Category{CategoryGoods, CategoryService} {
			if !perCategory[category][key] {
				return nil, fmt.Errorf("%w: no %s counter account for tax key %q", ErrInvalidConfig, category, key)
			}
		}
	}

	if missing := asymmetricKeys(perCategory[CategoryGoods], perCategory[CategoryService]); len(missing) > 0 {
		return nil, fmt.Errorf("%w: tax keys defined for only one category: %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	return &Classifier{accounts: table, defaultAccount: defaultAccount}, nil
}

// CounterAccount returns the account for the category and key, or the default
// account with Fallback set.
func (c *Classifier) CounterAccount(category Category, key TaxKey) AccountResult {
	if account, ok := c.accounts[AccountKey{Category: category, TaxKey: key}]; ok {
		return AccountResult{Account: account}
	}
	return AccountResult{Account: c.defaultAccount, Fallback: true}
}

// Covers reports whether key has an entry (for both categories, by construction).
func (c *Classifier) Covers(key TaxKey) bool {
	_, ok := c.accounts[AccountKey{Category: CategoryGoods, TaxKey: key}]
	return ok
}

// DefaultAccount returns the fallback counter-account.
func (c *Classifier) DefaultAccount() string {
	return c.defaultAccount
}

func asymmetricKeys(a, b map[TaxKey]bool) []string {
	var out []string
	for key := range a {
		if !b[key] {
			out = append(out, string(key))
		}
	}
	for key := range b {
		if !a[key] {
			out = append(out, string(key))
		}
	}
	sort.Strings(out)
	return out
}
