package detect

// CryptoAddressMatcher detects cryptocurrency wallet addresses for the
// major chains.
type CryptoAddressMatcher struct {
	baseMatcher
}

// NewCryptoAddressMatcher creates a new crypto address matcher.
func NewCryptoAddressMatcher() *CryptoAddressMatcher {
	return &CryptoAddressMatcher{
		baseMatcher: baseMatcher{
			id:         "pattern-crypto-address",
			entityType: TypeCryptoAddress,
			patterns: []NamedPattern{
				np("bitcoin_p2pkh", `\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`),
				np("bitcoin_bech32", `\bbc1[a-z0-9]{39,59}\b`),
				np("ethereum", `\b0x[a-fA-F0-9]{40}\b`),
				np("litecoin", `\b[LM][a-km-zA-HJ-NP-Z1-9]{26,33}\b`),
				np("dogecoin", `\bD[5-9A-HJ-NP-U][1-9A-HJ-NP-Za-km-z]{32}\b`),
				np("ripple", `\br[a-zA-Z0-9]{24,34}\b`),
				np("monero", `\b4[0-9AB][1-9A-HJ-NP-Za-km-z]{93}\b`),
			},
		},
	}
}
