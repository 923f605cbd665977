package home

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Credentials holds the login actually used to connect.
type Credentials struct {
	User     string
	Password string
}

// CredentialResolver turns a stored password into plaintext.
type CredentialResolver interface {
	Resolve(ctx context.Context, homePath, stored string) string
}

// LooksEncrypted reports whether a stored password looks like the installation's
// encrypted form: at least eight characters, all lower-case ASCII letters.
func LooksEncrypted(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// CommandDecrypter runs an external helper to decrypt passwords. The stored
// password is appended as the last argument and the helper's trimmed stdout is
// the plaintext. Any failure yields the stored value unchanged.
type CommandDecrypter struct {
	Command []string
	Timeout time.Duration
	Logger  zerolog.Logger
}

func (d CommandDecrypter) Resolve(ctx context.Context, homePath, stored string) string {
	if len(d.Command) == 0 || !LooksEncrypted(stored) {
		return stored
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, d.Command[1:]...), stored)
	cmd := exec.CommandContext(ctx, d.Command[0], args...)
	cmd.Dir = homePath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		d.Logger.Warn().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).Msg("password decrypt helper failed, using stored value")
		return stored
	}
	plain := strings.TrimSpace(string(out))
	if plain == "" {
		return stored
	}
	return plain
}

// ResolveCredentials produces the connection login for ds without touching ds.
func ResolveCredentials(ctx context.Context, r CredentialResolver, homePath string, ds DataSource) Credentials {
	creds := Credentials{User: ds.Username, Password: ds.Password}
	if r != nil {
		creds.Password = r.Resolve(ctx, homePath, ds.Password)
	}
	return creds
}
