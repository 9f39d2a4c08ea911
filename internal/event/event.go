package event

import (
	"xof_converter/internal/domain"
)

// Type identifies a session event
type Type int

const (
	TypeInput Type = iota + 1
	TypeDebounce
	TypeResolved
	TypeSaveFavorite
)

func (t Type) String() string {
	switch t {
	case TypeInput:
		return "input"
	case TypeDebounce:
		return "debounce"
	case TypeResolved:
		return "resolved"
	case TypeSaveFavorite:
		return "save_favorite"
	default:
		return "unknown"
	}
}

// Event is anything posted to a converter session inbox
type Event interface {
	GetType() Type
}

// Field names the input an InputEvent changes
type Field int

const (
	FieldAmount Field = iota + 1
	FieldFrom
	FieldTo
	FieldSwap
)

// InputEvent carries one user edit. Value is unused for FieldSwap.
type InputEvent struct {
	Field Field
	Value string
}

func (e *InputEvent) GetType() Type { return TypeInput }

// DebounceEvent fires once the quiet period after the input of Gen elapsed
type DebounceEvent struct {
	Gen uint64
}

func (e *DebounceEvent) GetType() Type { return TypeDebounce }

// ResolvedEvent reports a finished resolution started for Gen
type ResolvedEvent struct {
	Gen    uint64
	Result *domain.ConversionResult
	Err    error
}

func (e *ResolvedEvent) GetType() Type { return TypeResolved }

// SaveFavoriteEvent asks the session to bookmark its current conversion
type SaveFavoriteEvent struct{}

func (e *SaveFavoriteEvent) GetType() Type { return TypeSaveFavorite }
