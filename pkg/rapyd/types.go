package rapyd

import "github.com/shopspring/decimal"

// User is the canonical party record, regardless of which historical
// response shape the provider returned it in.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	PublicKey         string `json:"publicKey"`
	PaymentIdentifier string `json:"paymentIdentifier"`
}

// CreateUserRequest is the payload for provisioning a party on the provider.
type CreateUserRequest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Balance holds the two stablecoin balances a party carries. Tokens absent
// from the provider response stay zero.
type Balance struct {
	ZAR decimal.Decimal `json:"zar"`
	USD decimal.Decimal `json:"usd"`
}

// MintRequest credits a payment identifier from an external funding source.
type MintRequest struct {
	TransactionAmount    decimal.Decimal `json:"transactionAmount"`
	TransactionRecipient string          `json:"transactionRecipient"`
	TransactionNotes     string          `json:"transactionNotes"`
}

// TransferResult carries the provider's free-text outcome of a transfer.
// The provider signals success only through the message text, not the HTTP
// status; callers decide what the text means.
type TransferResult struct {
	Message string
	Raw     map[string]any
}

type tokenBalance struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

const (
	tokenNameZAR = "L ZAR Coin"
	tokenNameUSD = "L USD Coin"
)
