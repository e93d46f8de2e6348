package rapyd

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// The provider has shipped several envelope shapes per endpoint over time:
// a user arrives either under a "user" key or as the top-level object, a
// balance either under "balance" or bare. Each decode helper accepts exactly
// the known shapes and fails loudly on anything else instead of guessing.

func decodeUser(data []byte, endpoint string) (User, error) {
	var wrapped struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.User != nil {
		return validateUser(*wrapped.User, endpoint)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return User{}, &ShapeError{Endpoint: endpoint, Reason: err.Error()}
	}
	return validateUser(user, endpoint)
}

func validateUser(u User, endpoint string) (User, error) {
	if u.ID == "" {
		return User{}, &ShapeError{Endpoint: endpoint, Reason: "user object missing id"}
	}
	return u, nil
}

func decodeUserList(data []byte, endpoint string) ([]User, error) {
	var wrapped struct {
		Users []User `json:"users"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Users != nil {
		return wrapped.Users, nil
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, &ShapeError{Endpoint: endpoint, Reason: "neither a users envelope nor a bare list"}
	}
	return users, nil
}

func decodeBalance(data []byte, endpoint string) (Balance, error) {
	var wrapped struct {
		Balance *struct {
			Tokens []tokenBalance `json:"tokens"`
		} `json:"balance"`
		Tokens []tokenBalance `json:"tokens"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return Balance{}, &ShapeError{Endpoint: endpoint, Reason: err.Error()}
	}

	tokens := wrapped.Tokens
	if wrapped.Balance != nil {
		tokens = wrapped.Balance.Tokens
	}

	// Absent or unparseable tokens stay zero; token names outside the two
	// known coins are ignored.
	var bal Balance
	for _, t := range tokens {
		amount, err := decimal.NewFromString(t.Balance)
		if err != nil {
			continue
		}
		switch t.Name {
		case tokenNameZAR:
			bal.ZAR = amount
		case tokenNameUSD:
			bal.USD = amount
		}
	}
	return bal, nil
}

func decodeList(data []byte, key, endpoint string) ([]map[string]any, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err == nil {
		inner, ok := wrapped[key]
		if !ok {
			return nil, &ShapeError{Endpoint: endpoint, Reason: "object envelope missing " + key}
		}
		var items []map[string]any
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, &ShapeError{Endpoint: endpoint, Reason: key + " is not a list"}
		}
		return items, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &ShapeError{Endpoint: endpoint, Reason: "neither an envelope nor a bare list"}
	}
	return items, nil
}

func decodeObject(data []byte, key, endpoint string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &ShapeError{Endpoint: endpoint, Reason: err.Error()}
	}
	if key != "" {
		if inner, ok := obj[key].(map[string]any); ok {
			return inner, nil
		}
	}
	return obj, nil
}
