package treefmt

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/do2json/pkgs/ast"
)

// Digest computes the BLAKE2b-256 hash of the compact JSON rendering.
// Returns hex-encoded hash: "blake2b:a3f8b2c1d4e5f6a7..."
func Digest(tree *ast.Node) (string, error) {
	data, err := Marshal(tree, false)
	if err != nil {
		return "", fmt.Errorf("failed to serialize tree for digest: %w", err)
	}
	return DigestBytes(data), nil
}

// DigestBytes hashes already encoded output
func DigestBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
