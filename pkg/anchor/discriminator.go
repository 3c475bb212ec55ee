package anchor

import "crypto/sha256"

// GetDiscriminator returns the 8-byte Anchor discriminator for a namespaced
// symbol, e.g. ("global", "update_fee") for instructions or
// ("account", "SwapState") for account layouts.
func GetDiscriminator(namespace, name string) []byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	return sum[:8]
}
