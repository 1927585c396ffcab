package core

import "os"

// readAll is a thin os.ReadFile wrapper kept here so chain.go's imports
// stay limited to what it directly needs.
func readAll(path string) ([]byte, error) {
	return os.ReadFile(path)
}
