package model

type Related struct {
	Block *Block  `json:"block"`
	Score float64 `json:"score"`
}
