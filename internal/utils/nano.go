package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// Alphanumeric only: the IDs end up in URLs and object storage keys.
const (
	nanoidSize     = 32
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

func NanoID() string {
	return NanoIDSize(nanoidSize)
}

func NanoIDSize(size int) string {
	if size <= 0 {
		size = nanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}
