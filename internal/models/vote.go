package models

import "time"

// VoteChoice — ответ в опросе "нужен ли чат-бот".
type VoteChoice string

const (
	VoteWant VoteChoice = "want"
	VoteDont VoteChoice = "dont"
)

// Valid сообщает, допустим ли вариант ответа.
func (c VoteChoice) Valid() bool {
	return c == VoteWant || c == VoteDont
}

// Vote — голос, один на псевдоним; повторное голосование перезаписывает выбор.
type Vote struct {
	Pseudonym string
	Choice    VoteChoice
	UpdatedAt time.Time
}

// VoteTally — агрегированные результаты опроса.
type VoteTally struct {
	Want int64 `json:"want"`
	Dont int64 `json:"dont"`
}
