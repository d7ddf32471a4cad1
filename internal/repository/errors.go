package repository

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrAlreadySet   = errors.New("value already set")
	ErrPairConflict = errors.New("conversation pair still conflicting after retries")
)
