package chain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// StackItem é um item do stack de retorno de uma invocação, na forma
// entregue pelo nó. O Value só é interpretado sob demanda e de forma
// estrita: tipo errado ou campo ausente é erro, nunca um skip silencioso.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Array interpreta o item como sequência ordenada de itens.
func (s StackItem) Array() ([]StackItem, error) {
	if s.Type != "Array" && s.Type != "Struct" {
		return nil, fmt.Errorf("stack item is %q, want Array", s.Type)
	}
	var items []StackItem
	if err := json.Unmarshal(s.Value, &items); err != nil {
		return nil, fmt.Errorf("decode array value: %w", err)
	}
	return items, nil
}

// Bytes interpreta o item como sequência de bytes (base64 no wire).
func (s StackItem) Bytes() ([]byte, error) {
	if s.Type != "ByteString" && s.Type != "Buffer" {
		return nil, fmt.Errorf("stack item is %q, want ByteString", s.Type)
	}
	var raw string
	if err := json.Unmarshal(s.Value, &raw); err != nil {
		return nil, fmt.Errorf("decode byte string value: %w", err)
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return b, nil
}

// Int interpreta o item como inteiro (string decimal no wire).
func (s StackItem) Int() (int64, error) {
	if s.Type != "Integer" {
		return 0, fmt.Errorf("stack item is %q, want Integer", s.Type)
	}
	var raw string
	if err := json.Unmarshal(s.Value, &raw); err != nil {
		return 0, fmt.Errorf("decode integer value: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse integer value: %w", err)
	}
	return n, nil
}
