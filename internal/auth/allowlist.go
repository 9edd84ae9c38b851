// Package auth handles SSH public key authentication via allowlist.
package auth

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrAllowlistNotFound is returned when the allowlist file doesn't exist.
var ErrAllowlistNotFound = errors.New("allowlist file not found")

// Entry is one allowlisted key and the shop it is bound to.
// An empty Shop means the server default.
type Entry struct {
	Key  ssh.PublicKey
	Shop string
}

// Allowlist is the parsed contents of an allowlist file.
type Allowlist []Entry

// LoadAllowlist reads an OpenSSH authorized_keys format file. Each line may
// bind the key to a shop with a shop=<domain> option or comment token.
// Empty lines, comments and unparseable keys are skipped.
func LoadAllowlist(path string) (Allowlist, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAllowlistNotFound
		}
		return nil, err
	}
	defer file.Close()

	var list Allowlist
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pubKey, comment, options, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}

		list = append(list, Entry{Key: pubKey, Shop: shopFrom(comment, options)})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func shopFrom(comment string, options []string) string {
	for _, opt := range options {
		if v, ok := strings.CutPrefix(opt, "shop="); ok {
			return strings.Trim(v, `"`)
		}
	}
	for _, tok := range strings.Fields(comment) {
		if v, ok := strings.CutPrefix(tok, "shop="); ok {
			return v
		}
	}
	return ""
}

// Match returns the entry for key, comparing marshaled key bytes.
func (a Allowlist) Match(key ssh.PublicKey) (Entry, bool) {
	if key == nil {
		return Entry{}, false
	}

	keyBytes := key.Marshal()
	for _, e := range a {
		if bytes.Equal(keyBytes, e.Key.Marshal()) {
			return e, true
		}
	}
	return Entry{}, false
}

// IsKeyAllowed checks if the given public key is in the allowlist.
func (a Allowlist) IsKeyAllowed(key ssh.PublicKey) bool {
	_, ok := a.Match(key)
	return ok
}

// CreateEmptyAllowlist creates an empty allowlist file with a helpful comment.
func CreateEmptyAllowlist(path string) error {
	content := `# SSH Public Key Allowlist
# Add one public key per line in OpenSSH authorized_keys format.
# Bind a key to a shop with a shop=<domain> token in the comment.
# Example:
# ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIExample... ana@laptop shop=tienda.myshopify.com
`
	return os.WriteFile(path, []byte(content), 0644)
}
