package posting

import "sort"

// VoucherFilterAll selects every voucher row that carries an identifier.
const VoucherFilterAll = "all"

// VoucherAccounts names the accounts that mark voucher sales and redemptions.
type VoucherAccounts struct {
	Issue      []string
	Redemption string
}

// VoucherTracker builds the chronological voucher ledger.
type VoucherTracker struct {
	issue      map[string]bool
	redemption string
}

// NewVoucherTracker creates a tracker for the given accounts.
func NewVoucherTracker(accounts VoucherAccounts) *VoucherTracker {
	issue := make(map[string]bool, len(accounts.Issue))
	for _, a := range accounts.Issue {
		if a != "" {
			issue[a] = true
		}
	}
	return &VoucherTracker{issue: issue, redemption: accounts.Redemption}
}

// Enabled reports whether any voucher account is configured.
func (t *VoucherTracker) Enabled() bool {
	return len(t.issue) > 0 || t.redemption != ""
}

// Track selects postings booked on an issue or redemption account, applies the
// voucher filter and sorts the rows by timestamp. Issue rows precede redemption
// rows with the same timestamp. No pairing is attempted.
//
// Filter "" keeps every selected row, VoucherFilterAll keeps rows with a
// voucher identifier, any other value keeps rows with exactly that identifier.
func (t *VoucherTracker) Track(postings []NormalizedPosting, filter string) []VoucherEvent {
	var issues, redemptions []VoucherEvent
	for _, p := range postings {
		kind, account, ok := t.classify(p)
		if !ok || !keepVoucher(p.Source.VoucherID, filter) {
			continue
		}
		ev := VoucherEvent{
			Kind:          kind,
			Date:          p.Source.Date,
			Time:          p.Source.Time,
			Timestamp:     p.Timestamp,
			Amount:        p.SignedAmount(),
			Receipt:       p.Source.ReceiptNumber,
			VoucherID:     p.Source.VoucherID,
			Quantity:      p.Source.Quantity,
			Product:       p.Source.Product,
			LinkedReceipt: p.Source.LinkedReceipt,
			Account:       account,
		}
		if kind == VoucherIssue {
			issues = append(issues, ev)
		} else {
			redemptions = append(redemptions, ev)
		}
	}

	events := append(issues, redemptions...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func (t *VoucherTracker) classify(p NormalizedPosting) (VoucherKind, string, bool) {
	for _, a := range []string{p.DebitAccount, p.CreditAccount} {
		if t.issue[a] {
			return VoucherIssue, a, true
		}
	}
	if t.redemption != "" {
		for _, a := range []string{p.DebitAccount, p.CreditAccount} {
			if a == t.redemption {
				return VoucherRedemption, a, true
			}
		}
	}
	return "", "", false
}

func keepVoucher(id, filter string) bool {
	switch filter {
	case "":
		return true
	case VoucherFilterAll:
		return id != ""
	default:
		return id == filter
	}
}
