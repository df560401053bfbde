package mint

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"gopkg.in/yaml.v3"
)

// allowListFile is the on-disk YAML shape of validator_allow_list_path.
type allowListFile struct {
	Validators []struct {
		ID                  string   `yaml:"id"`
		PubKey              string   `yaml:"pubkey"`
		Capabilities        []string `yaml:"capabilities"`
		MaxTokensPerRequest int      `yaml:"max_tokens_per_request"`
		Active              bool     `yaml:"active"`
	} `yaml:"validators"`
}

// AllowList holds the current snapshot of validator authorization records,
// replaced wholesale on every reload so readers never observe a half-parsed
// file. Lookups take a read lock; reloads swap the map under a write lock.
type AllowList struct {
	mu      deadlock.RWMutex
	entries map[string]ValidatorEntry
}

// NewAllowList loads path once and returns an AllowList ready for lookups.
func NewAllowList(path string) (*AllowList, error) {
	al := &AllowList{}
	if err := al.reload(path); err != nil {
		return nil, err
	}
	return al, nil
}

// Lookup returns the entry for validatorID, or ok=false if it is unknown.
func (al *AllowList) Lookup(validatorID string) (ValidatorEntry, bool) {
	al.mu.RLock()
	defer al.mu.RUnlock()
	e, ok := al.entries[validatorID]
	return e, ok
}

func (al *AllowList) reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "mint: reading allow-list")
	}
	var parsed allowListFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return errors.Wrap(err, "mint: parsing allow-list")
	}

	next := make(map[string]ValidatorEntry, len(parsed.Validators))
	for _, v := range parsed.Validators {
		pub, err := hex.DecodeString(v.PubKey)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return errors.Errorf("mint: allow-list entry %q has an invalid pubkey", v.ID)
		}
		caps := make(map[Capability]bool, len(v.Capabilities))
		for _, c := range v.Capabilities {
			caps[Capability(c)] = true
		}
		next[v.ID] = ValidatorEntry{
			PubKey:              pub,
			Capabilities:        caps,
			MaxTokensPerRequest: v.MaxTokensPerRequest,
			Active:              v.Active,
		}
	}

	al.mu.Lock()
	al.entries = next
	al.mu.Unlock()
	return nil
}

// Watch starts an fsnotify watcher on path and reloads the allow-list on
// every write or create event, logging and keeping the prior snapshot on
// any parse failure so a bad edit never blanks out authorization. It runs
// until Close is called on the returned watcher.
func (al *AllowList) Watch(path string, logger log.Logger) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "mint: starting allow-list watcher")
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "mint: watching allow-list path")
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := al.reload(path); err != nil {
					level.Error(logger).Log("msg", "mint allow-list reload failed, keeping prior snapshot", "err", err)
					continue
				}
				level.Info(logger).Log("msg", "mint allow-list reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				level.Error(logger).Log("msg", "mint allow-list watcher error", "err", err)
			}
		}
	}()

	return w, nil
}
