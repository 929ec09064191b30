package types

import "errors"

var (
	// ErrBlockOutOfRange is returned when a caller passes a block index the
	// image does not have. It signals a programming error, not bad data.
	ErrBlockOutOfRange = errors.New("block index out of range")

	// ErrInvalidBlockCount is returned when formatting with zero blocks.
	ErrInvalidBlockCount = errors.New("block count must be greater than zero")

	// ErrImageTooLarge is returned for a block count whose image would not
	// fit in a signed 64-bit file offset.
	ErrImageTooLarge = errors.New("image too large to address")

	// ErrCounterUnderflow is returned when decrementing a counter that is 0.
	ErrCounterUnderflow = errors.New("counter is already zero")
)
