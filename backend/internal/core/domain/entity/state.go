package entity

import (
	"errors"
	"fmt"
)

// AnimationState состояние анимации ворот
type AnimationState int

const (
	StateClosed AnimationState = iota
	StateOpening
	StateOpen
	StateClosing
)

func (s AnimationState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpening:
		return "OPENING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return fmt.Sprintf("AnimationState(%d)", int(s))
	}
}

// IsAnimating true для OPENING и CLOSING - только в них планировщик двигает кадры
func (s AnimationState) IsAnimating() bool {
	return s == StateOpening || s == StateClosing
}

// ParseAnimationState разбирает строковое имя состояния
func ParseAnimationState(name string) (AnimationState, error) {
	switch name {
	case "CLOSED":
		return StateClosed, nil
	case "OPENING":
		return StateOpening, nil
	case "OPEN":
		return StateOpen, nil
	case "CLOSING":
		return StateClosing, nil
	}
	return StateClosed, fmt.Errorf("unknown animation state %q", name)
}

// Command команда машины состояний ворот
type Command int

const (
	CommandOpen Command = iota
	CommandClose
	// CommandFinish - анимация дошла до конечного кадра
	CommandFinish
	CommandForceOpen
	CommandForceClose
)

func (c Command) String() string {
	switch c {
	case CommandOpen:
		return "open"
	case CommandClose:
		return "close"
	case CommandFinish:
		return "finish"
	case CommandForceOpen:
		return "force_open"
	case CommandForceClose:
		return "force_close"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

var (
	ErrAlreadyOpen    = errors.New("gate is already open or opening")
	ErrAlreadyClosed  = errors.New("gate is already closed or closing")
	ErrNotAnimating   = errors.New("gate is not animating")
	ErrUnknownCommand = errors.New("unknown gate command")
)

// Transition - явная функция машины состояний: (состояние, команда) -> новое состояние.
//
//	CLOSED  --open-->   OPENING --finish--> OPEN
//	OPEN    --close-->  CLOSING --finish--> CLOSED
//	CLOSING --open-->   OPENING (с кадра 0)
//	OPENING --close-->  CLOSING (с кадра duration)
//
// Принудительные команды переводят любое состояние в конечное.
func Transition(state AnimationState, cmd Command) (AnimationState, error) {
	switch cmd {
	case CommandOpen:
		switch state {
		case StateClosed, StateClosing:
			return StateOpening, nil
		default:
			return state, ErrAlreadyOpen
		}
	case CommandClose:
		switch state {
		case StateOpen, StateOpening:
			return StateClosing, nil
		default:
			return state, ErrAlreadyClosed
		}
	case CommandFinish:
		switch state {
		case StateOpening:
			return StateOpen, nil
		case StateClosing:
			return StateClosed, nil
		default:
			return state, ErrNotAnimating
		}
	case CommandForceOpen:
		return StateOpen, nil
	case CommandForceClose:
		return StateClosed, nil
	}
	return state, ErrUnknownCommand
}
