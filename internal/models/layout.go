package models

// MatrixColumns is the number of switch matrix columns (two rows of four).
const MatrixColumns = 4

// MatrixPosition converts a key index (0-7) to its switch matrix position.
// Row 0 holds K1-K4, row 1 holds K5-K8.
func MatrixPosition(index int) (row, col uint8) {
	return uint8(index / MatrixColumns), uint8(index % MatrixColumns)
}

// KeymapToLED converts a keymap (matrix-order) index to an LED index.
// The LED chain is snake-wired, so the bottom row runs backwards: 4,5,6,7 -> 7,6,5,4.
func KeymapToLED(index int) int {
	if index < MatrixColumns {
		return index
	}
	return 3*MatrixColumns - 1 - index
}

// LEDToKeymap is the inverse of KeymapToLED. The mapping is its own inverse.
func LEDToKeymap(led int) int { return KeymapToLED(led) }

// ValidKeyIndex reports whether i addresses a physical key.
func ValidKeyIndex(i int) bool { return i >= 0 && i < NumKeys }
