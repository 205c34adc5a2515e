package models

import "time"

// Edge is one recorded transfer between two addresses. Only From and To carry
// graph meaning; the remaining fields are kept for reporting.
type Edge struct {
	From        Address   `json:"from"`
	To          Address   `json:"to"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	Value       string    `json:"value,omitempty"`
}

// Direction selects which transfers count when expanding an address.
type Direction string

// Traversal directions.
const (
	DirectionBoth     Direction = "both"
	DirectionOutgoing Direction = "out"
	DirectionIncoming Direction = "in"
)

// ParseDirection maps user input to a Direction. Empty input means both.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", DirectionBoth:
		return DirectionBoth, nil
	case DirectionOutgoing, DirectionIncoming:
		return Direction(s), nil
	default:
		return "", ErrInvalidDirection(s)
	}
}

// Neighbor returns the endpoint of e opposite addr when e may be traversed
// from addr in direction d. Self-transfers, edges with an empty endpoint and
// edges not touching addr yield ok=false.
func (e Edge) Neighbor(addr Address, d Direction) (Address, bool) {
	if e.From == "" || e.To == "" || e.From == e.To {
		return "", false
	}

	switch {
	case e.From == addr && d != DirectionIncoming:
		return e.To, true
	case e.To == addr && d != DirectionOutgoing:
		return e.From, true
	default:
		return "", false
	}
}

// PageOptions bounds a single FetchTransactions call.
type PageOptions struct {
	// PageSize is the number of rows requested per remote page.
	PageSize int `json:"page_size,omitempty"`
	// MaxResults caps the edges collected across all pages.
	MaxResults int `json:"max_results,omitempty"`
	// StartBlock and EndBlock restrict the block range; zero EndBlock means latest.
	StartBlock uint64 `json:"start_block,omitempty"`
	EndBlock   uint64 `json:"end_block,omitempty"`
}
