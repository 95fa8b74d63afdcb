package checkout

// OptionSelector chooses the default (chain, payment option) pair presented
// to the user before they have picked anything themselves.
type OptionSelector interface {
	// Select chooses the best chain and option for the given invoice data.
	// networkName is the backend-declared network; empty means the invoice
	// left the network open and any enabled chain may serve.
	Select(reg *Registry, networkName string, options []PaymentOption) (*ChainDescriptor, PaymentOption, error)
}

// DefaultOptionSelector implements the standard selection algorithm:
//  1. A backend-declared network restricts candidates to that single chain.
//  2. Otherwise enabled chains are considered ascending by priority.
//  3. On the chosen chain, invoice order breaks ties between options whose
//     token the chain carries.
type DefaultOptionSelector struct{}

// NewDefaultOptionSelector creates a new DefaultOptionSelector.
func NewDefaultOptionSelector() *DefaultOptionSelector {
	return &DefaultOptionSelector{}
}

// Select implements OptionSelector.
func (s *DefaultOptionSelector) Select(reg *Registry, networkName string, options []PaymentOption) (*ChainDescriptor, PaymentOption, error) {
	if len(options) == 0 {
		return nil, PaymentOption{}, ErrNoPaymentOption
	}

	var candidates []*ChainDescriptor
	if networkName != "" {
		chain, err := reg.ResolveByBackendName(networkName)
		if err != nil {
			return nil, PaymentOption{}, err
		}
		candidates = []*ChainDescriptor{chain}
	} else {
		candidates = reg.Enabled()
	}

	for _, chain := range candidates {
		for _, opt := range options {
			tok, err := chain.Token(opt.TokenSymbol)
			if err != nil {
				continue
			}
			// A default the user cannot actually pay with is worse
			// than none.
			if _, err := ParseUnits(opt.RequiredAmount, tok.Decimals); err != nil {
				continue
			}
			return chain, opt, nil
		}
	}

	return nil, PaymentOption{}, ErrNoPaymentOption
}
