package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Sentinel errors the gateway's tool routing distinguishes between.
var (
	ErrVaultLocked  = errors.New("vault: locked")
	ErrNotFound     = errors.New("vault: not found")
	ErrPolicyDenied = errors.New("vault: policy denied")
	ErrDisabled     = errors.New("vault: entry disabled")
)

// Mode selects how the vault file's encryption key is obtained.
type Mode string

const (
	ModePassphrase Mode = "passphrase"
	ModeKeyfile    Mode = "keyfile"
)

// file is the on-disk (decrypted) representation: a flat namespace of
// string keys to raw JSON values, per the gateway's cred:<name> /
// val:<name> / val:<name>:user layout.
type file struct {
	Entries map[string]json.RawMessage `json:"entries"`
}

// Vault is the encrypted single-file credential store. All reads and
// writes are serialized through mu so that concurrent Store calls resolve
// to "last successful write wins" with no partial state observable to
// readers.
type Vault struct {
	mu     sync.Mutex
	path   string
	mode   Mode
	key    []byte
	salt   []byte
	logger *slog.Logger

	entries map[string]json.RawMessage
	locked  bool
}

// Open opens (or initializes) the vault file at path using passphrase-based
// key derivation. The vault starts in the unlocked state since the
// passphrase is supplied up front.
func Open(path, passphrase string, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Vault{path: path, mode: ModePassphrase, logger: logger.With("component", "vault")}

	salt, existing, err := readSaltAndBlob(path)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt, err = randomSalt()
		if err != nil {
			return nil, err
		}
	}
	v.salt = salt
	v.key = deriveKey(passphrase, salt)

	if existing == nil {
		v.entries = map[string]json.RawMessage{}
		if err := v.persistLocked(); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := v.loadLocked(existing); err != nil {
		return nil, fmt.Errorf("vault: wrong passphrase or corrupt file: %w", err)
	}
	return v, nil
}

// OpenKeyfile opens (or initializes) the vault using a machine-bound key
// stored alongside the vault file (or at keyfilePath if given).
func OpenKeyfile(path, keyfilePath string, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if keyfilePath == "" {
		keyfilePath = path + ".key"
	}
	key, err := loadOrCreateKeyfile(keyfilePath)
	if err != nil {
		return nil, err
	}
	v := &Vault{path: path, mode: ModeKeyfile, key: key, logger: logger.With("component", "vault")}

	_, existing, err := readSaltAndBlob(path)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		v.entries = map[string]json.RawMessage{}
		if err := v.persistLocked(); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := v.loadLocked(existing); err != nil {
		return nil, fmt.Errorf("vault: wrong key or corrupt file: %w", err)
	}
	return v, nil
}

func readSaltAndBlob(path string) (salt, blob []byte, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	if len(data) < saltSize {
		return nil, nil, fmt.Errorf("vault: %s is truncated", path)
	}
	return data[:saltSize], data[saltSize:], nil
}

func (v *Vault) loadLocked(ciphertext []byte) error {
	plaintext, err := open(v.key, ciphertext)
	if err != nil {
		return err
	}
	var f file
	if err := json.Unmarshal(plaintext, &f); err != nil {
		return fmt.Errorf("vault: decode: %w", err)
	}
	if f.Entries == nil {
		f.Entries = map[string]json.RawMessage{}
	}
	v.entries = f.Entries
	return nil
}

// persistLocked writes the current in-memory entries back to disk
// atomically (write to a temp file, then rename) so a crash mid-write
// never leaves a partially-written vault file observable to readers.
func (v *Vault) persistLocked() error {
	plaintext, err := json.Marshal(file{Entries: v.entries})
	if err != nil {
		return fmt.Errorf("vault: encode: %w", err)
	}

	var salt []byte
	if v.mode == ModePassphrase {
		salt = v.salt
	} else {
		salt = make([]byte, saltSize) // unused in keyfile mode, kept for a uniform header
	}

	ciphertext, err := seal(v.key, plaintext)
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(salt)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, ciphertext...)

	dir := filepath.Dir(v.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("vault: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vault-*.tmp")
	if err != nil {
		return fmt.Errorf("vault: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("vault: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vault: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vault: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, v.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vault: rename temp file: %w", err)
	}
	return nil
}

func credKey(name string) string { return "cred:" + name }
func valKey(name string) string { return "val:" + name }
func valUserKey(name string) string { return "val:" + name + ":user" }

// List returns every entry's metadata, never values.
func (v *Vault) List() ([]Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked {
		return nil, ErrVaultLocked
	}

	var out []Entry
	const prefix = "cred:"
	for k, raw := range v.entries {
		if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("vault: decode entry %s: %w", k, err)
		}
		e.Name = k[len(prefix):]
		out = append(out, e)
	}
	return out, nil
}

// Get evaluates the entry's access policy against ctx and, if granted,
// returns the decrypted value.
func (v *Vault) Get(name string, ctx AccessContext) (Value, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked {
		return Value{}, ErrVaultLocked
	}

	raw, ok := v.entries[credKey(name)]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Value{}, fmt.Errorf("vault: decode entry %s: %w", name, err)
	}
	if e.Disabled {
		return Value{}, fmt.Errorf("%w: %s", ErrDisabled, name)
	}
	if !e.Policy.Grants(ctx) {
		v.logger.Debug("vault access denied", "name", name, "policy", e.Policy.String())
		return Value{}, fmt.Errorf("%w: %s", ErrPolicyDenied, name)
	}

	valRaw, ok := v.entries[valKey(name)]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s has no stored value", ErrNotFound, name)
	}
	var secret string
	if err := json.Unmarshal(valRaw, &secret); err != nil {
		return Value{}, fmt.Errorf("vault: decode value %s: %w", name, err)
	}

	out := Value{Secret: secret}
	if e.Kind == KindUsernamePassword {
		if userRaw, ok := v.entries[valUserKey(name)]; ok {
			var username string
			if err := json.Unmarshal(userRaw, &username); err != nil {
				return Value{}, fmt.Errorf("vault: decode username %s: %w", name, err)
			}
			out.Username = username
		}
	}

	v.logger.Debug("vault access granted", "name", name)
	return out, nil
}

// Store writes (or overwrites) an entry's metadata and value(s). Writes are
// applied to an in-memory snapshot and persisted atomically; concurrent
// Store calls serialize on mu so the last successful call wins and no
// caller ever observes a half-applied write.
func (v *Vault) Store(name string, e Entry, val Value) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked {
		return ErrVaultLocked
	}

	entryJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("vault: encode entry: %w", err)
	}
	secretJSON, err := json.Marshal(val.Secret)
	if err != nil {
		return fmt.Errorf("vault: encode value: %w", err)
	}

	snapshot := cloneEntries(v.entries)
	snapshot[credKey(name)] = entryJSON
	snapshot[valKey(name)] = secretJSON
	if e.Kind == KindUsernamePassword {
		userJSON, err := json.Marshal(val.Username)
		if err != nil {
			return fmt.Errorf("vault: encode username: %w", err)
		}
		snapshot[valUserKey(name)] = userJSON
	} else {
		delete(snapshot, valUserKey(name))
	}

	prev := v.entries
	v.entries = snapshot
	if err := v.persistLocked(); err != nil {
		v.entries = prev
		return err
	}
	v.logger.Debug("vault entry stored", "name", name, "kind", e.Kind)
	return nil
}

// SetPolicy overwrites an entry's access policy without touching its
// value, used by the Skills Registry to apply/revert skill linkage.
func (v *Vault) SetPolicy(name string, policy AccessPolicy) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked {
		return ErrVaultLocked
	}

	raw, ok := v.entries[credKey(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return fmt.Errorf("vault: decode entry %s: %w", name, err)
	}
	e.Policy = policy

	entryJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("vault: encode entry: %w", err)
	}
	snapshot := cloneEntries(v.entries)
	snapshot[credKey(name)] = entryJSON

	prev := v.entries
	v.entries = snapshot
	if err := v.persistLocked(); err != nil {
		v.entries = prev
		return err
	}
	return nil
}

// Policy returns an entry's current access policy without evaluating it,
// used by the Skills Registry to compute linkage deltas.
func (v *Vault) Policy(name string) (AccessPolicy, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locked {
		return AccessPolicy{}, ErrVaultLocked
	}
	raw, ok := v.entries[credKey(name)]
	if !ok {
		return AccessPolicy{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return AccessPolicy{}, fmt.Errorf("vault: decode entry %s: %w", name, err)
	}
	return e.Policy, nil
}

// Lock clears the in-memory key material and entries, forcing all
// subsequent operations to fail with ErrVaultLocked until re-opened.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locked = true
	v.key = nil
	v.entries = nil
}

func cloneEntries(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
