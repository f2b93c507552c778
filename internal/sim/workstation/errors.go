package workstation

import "errors"

var (
	ErrDuplicateProcessType = errors.New("duplicate process type")
	ErrUnknownProcessType   = errors.New("unknown process type")
	ErrSlotBusy             = errors.New("process slot busy")
	ErrBadSlot              = errors.New("no such process slot")
	ErrInputsChanged        = errors.New("inputs no longer satisfy recipe")
	ErrCancelled            = errors.New("process cancelled")
)
