package db

// DefaultRouteCatalog is the global catalog seeded into an empty database.
// Fees and timings are indicative list prices, not contracted rates.
func DefaultRouteCatalog() []RouteRecord {
	return []RouteRecord{
		{
			FromCountry: wildcard, ToCountry: wildcard,
			Provider: "swift", Method: "wire",
			FixedFee: 25, PercentFee: 0.1, EstimatedTimeHours: 48, Reliability: 0.98,
			Coverage:     []string{wildcard},
			Requirements: []string{"iban_or_account_number", "bic"},
		},
		{
			FromCountry: wildcard, ToCountry: wildcard,
			Provider: "wise", Method: "bank_transfer",
			FixedFee: 1.5, PercentFee: 0.45, EstimatedTimeHours: 24, Reliability: 0.96,
			Coverage: []string{"US", "GB", "DE", "FR", "ES", "IT", "NL", "AE", "IN", "JP", "AU", "CA", "SG", "MX"},
		},
		{
			FromCountry: wildcard, ToCountry: wildcard,
			Provider: "stripe", Method: "card_payout",
			FixedFee: 0.25, PercentFee: 1.5, EstimatedTimeHours: 2, Reliability: 0.93,
			Coverage: []string{"US", "GB", "DE", "FR", "CA", "AU", "SG", "JP"},
		},
		{
			FromCountry: wildcard, ToCountry: wildcard,
			Provider: "local_rails", Method: "local_transfer",
			FixedFee: 0.5, PercentFee: 0.2, EstimatedTimeHours: 6, Reliability: 0.9,
			Coverage:     []string{"DE", "FR", "ES", "IT", "NL", "GB", "IN", "AE"},
			Requirements: []string{"local_account"},
		},
		{
			FromCountry: wildcard, ToCountry: wildcard,
			Provider: "crypto_bridge", Method: "stablecoin",
			FixedFee: 1, PercentFee: 0.8, EstimatedTimeHours: 0.5, Reliability: 0.82,
			Coverage:     []string{wildcard},
			Requirements: []string{"kyc_verified", "wallet_address"},
		},
	}
}
