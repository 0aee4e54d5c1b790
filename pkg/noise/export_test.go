package noise

// CipherKey exposes the AES key of a cipher state.
func CipherKey(cs *CipherState) []byte {
	return append([]byte(nil), cs.key[:]...)
}
