package models

import "time"

// ReactionKind — одна из четырёх именованных реакций.
type ReactionKind string

const (
	ReactionInspired  ReactionKind = "inspired"
	ReactionThink     ReactionKind = "think"
	ReactionRelatable ReactionKind = "relatable"
	ReactionFollowing ReactionKind = "following"
)

// ReactionKinds — все реакции в порядке отображения.
var ReactionKinds = []ReactionKind{ReactionInspired, ReactionThink, ReactionRelatable, ReactionFollowing}

// Valid сообщает, входит ли реакция в фиксированный набор.
func (k ReactionKind) Valid() bool {
	switch k {
	case ReactionInspired, ReactionThink, ReactionRelatable, ReactionFollowing:
		return true
	}
	return false
}

// Reactions — счётчики реакций поста. Значения не бывают отрицательными.
type Reactions struct {
	Inspired  int64 `json:"inspired"`
	Think     int64 `json:"think"`
	Relatable int64 `json:"relatable"`
	Following int64 `json:"following"`
}

// Get возвращает значение счётчика по виду реакции.
func (r Reactions) Get(kind ReactionKind) int64 {
	switch kind {
	case ReactionInspired:
		return r.Inspired
	case ReactionThink:
		return r.Think
	case ReactionRelatable:
		return r.Relatable
	case ReactionFollowing:
		return r.Following
	}
	return 0
}

// Add возвращает копию с изменённым счётчиком; результат не опускается ниже нуля.
func (r Reactions) Add(kind ReactionKind, delta int64) Reactions {
	clamp := func(v int64) int64 {
		if v < 0 {
			return 0
		}
		return v
	}

	switch kind {
	case ReactionInspired:
		r.Inspired = clamp(r.Inspired + delta)
	case ReactionThink:
		r.Think = clamp(r.Think + delta)
	case ReactionRelatable:
		r.Relatable = clamp(r.Relatable + delta)
	case ReactionFollowing:
		r.Following = clamp(r.Following + delta)
	}
	return r
}

// ReactionSnapshot — состояние счётчиков поста после изменения.
// Рассылается подписчикам; важен только последний снимок.
type ReactionSnapshot struct {
	PostID    string    `json:"post_id"`
	Reactions Reactions `json:"reactions"`
	At        time.Time `json:"at"`
}
