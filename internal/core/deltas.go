package core

// AccountDelta is a signed balance change for one account.
type AccountDelta struct {
	AccountID string `json:"accountId"`
	Delta     Money  `json:"delta"`
}

// Effects returns the forward balance deltas of t: income credits the source,
// expense debits it, transfer debits the source and credits the destination.
func (t Transaction) Effects() []AccountDelta {
	switch t.Type {
	case Income:
		return []AccountDelta{{AccountID: t.AccountID, Delta: t.Amount}}
	case Expense:
		return []AccountDelta{{AccountID: t.AccountID, Delta: t.Amount.Neg()}}
	case Transfer:
		return []AccountDelta{
			{AccountID: t.AccountID, Delta: t.Amount.Neg()},
			{AccountID: t.TransferAccountID, Delta: t.Amount},
		}
	}
	return nil
}

// ComputeDeltas returns the net per-account change of replacing prev with next.
// Either side may be nil: (nil, t) is a create, (t, nil) a delete. The inverse
// of prev and the forward effect of next are always both included and merged, so
// an account that appears on both sides nets out. Accounts whose net change is
// zero are omitted. Order follows first appearance: old source, old destination,
// new source, new destination.
func ComputeDeltas(prev, next *Transaction) []AccountDelta {
	var order []string
	net := make(map[string]int64)
	add := func(d AccountDelta) {
		if _, seen := net[d.AccountID]; !seen {
			order = append(order, d.AccountID)
		}
		net[d.AccountID] += d.Delta.Cents
	}

	if prev != nil {
		for _, d := range prev.Effects() {
			add(AccountDelta{AccountID: d.AccountID, Delta: d.Delta.Neg()})
		}
	}
	if next != nil {
		for _, d := range next.Effects() {
			add(d)
		}
	}

	out := make([]AccountDelta, 0, len(order))
	for _, id := range order {
		if net[id] == 0 {
			continue
		}
		out = append(out, AccountDelta{AccountID: id, Delta: Money{Cents: net[id]}})
	}
	return out
}

// AccountIDs returns the distinct account ids referenced by t.
func (t Transaction) AccountIDs() []string {
	if t.Type == Transfer && t.TransferAccountID != "" {
		return []string{t.AccountID, t.TransferAccountID}
	}
	return []string{t.AccountID}
}
