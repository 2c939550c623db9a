package topics

const (
	// Bets
	BetPlaced    = "flyby_bet_placed"
	BetJournaled = "flyby_bet_journaled"

	// DLQs
	BetPlacedDLQ = "flyby_bet_placed_dlq"

	// Canal Redis Pub/Sub para pulsos da chain (monitor -> gateways)
	ChainPulseChannel = "flyby_chain_pulse"
)
