package core

// Prepend returns a new ledger with tx in front of the existing records.
// The input slice is not modified.
func Prepend(ledger []Transaction, tx Transaction) []Transaction {
	out := make([]Transaction, 0, len(ledger)+1)
	out = append(out, tx)
	return append(out, ledger...)
}

// Remove returns a new ledger without the record carrying id, and whether
// such a record existed. Removing an unknown id returns an unchanged copy.
func Remove(ledger []Transaction, id string) ([]Transaction, bool) {
	out := make([]Transaction, 0, len(ledger))
	found := false
	for _, t := range ledger {
		if t.ID == id {
			found = true
			continue
		}
		out = append(out, t)
	}
	return out, found
}

// Find returns the record with the given id.
func Find(ledger []Transaction, id string) (Transaction, bool) {
	for _, t := range ledger {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// Recent returns at most n records from the front of the ledger, i.e. the
// most recently inserted ones.
func Recent(ledger []Transaction, n int) []Transaction {
	if n <= 0 {
		return nil
	}
	if n > len(ledger) {
		n = len(ledger)
	}
	return append([]Transaction(nil), ledger[:n]...)
}
