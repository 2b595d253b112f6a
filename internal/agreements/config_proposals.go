package agreements

import (
	"github.com/klppl/mitra/internal/caip"
	"github.com/klppl/mitra/internal/store"
)

// ConfigProposalLookup implements ProposalLookup for a single-tenant
// instance: the one local actor advertises one subscription price on one
// chain, both read from process configuration rather than a database table,
// since spec.md §1 scopes multi-proposal management out of this codebase.
type ConfigProposalLookup struct {
	Store    *store.Store
	Username string
	ChainID  caip.ChainID
	Price    int64 // atomic units of the reciprocal asset, per second
}

// LocalActorID resolves username to its local actor id.
func (l *ConfigProposalLookup) LocalActorID(username string) (string, bool) {
	a, ok := l.Store.GetLocalActorByUsername(username)
	if !ok {
		return "", false
	}
	return a.ID, true
}

// SubscriptionOption returns the configured price if username and chainID
// match the instance's single advertised proposal.
func (l *ConfigProposalLookup) SubscriptionOption(username string, chainID caip.ChainID) (SubscriptionOption, bool) {
	if username != l.Username || chainID != l.ChainID {
		return SubscriptionOption{}, false
	}
	return SubscriptionOption{ChainID: chainID, PriceAtomicUnits: l.Price}, true
}
