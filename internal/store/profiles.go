package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

const profileExt = ".json"

// ProfileStore keeps one JSON file per profile in a directory.
type ProfileStore struct {
	dir string
}

// NewProfileStore uses dir, creating it on first save.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{dir: dir}
}

// ValidateProfileName rejects names that are empty or would escape the
// profile directory.
func ValidateProfileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: profile name is required", models.ErrInvalidInput)
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return fmt.Errorf("%w: invalid profile name %q", models.ErrInvalidInput, name)
	}
	return nil
}

func (p *ProfileStore) path(name string) string {
	return filepath.Join(p.dir, name+profileExt)
}

// List returns the profile names, sorted.
func (p *ProfileStore) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != profileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Save writes a profile, replacing any profile with the same name.
func (p *ProfileStore) Save(prof models.Profile) error {
	if err := ValidateProfileName(prof.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	return writeFileAtomic(p.path(prof.Name), prof)
}

// Load reads a profile by name.
func (p *ProfileStore) Load(name string) (models.Profile, error) {
	if err := ValidateProfileName(name); err != nil {
		return models.Profile{}, err
	}
	data, err := os.ReadFile(p.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Profile{}, fmt.Errorf("%w: profile %q", models.ErrNoSuchItem, name)
		}
		return models.Profile{}, err
	}
	var prof models.Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return models.Profile{}, fmt.Errorf("store: parse profile %q: %w", name, err)
	}
	prof.Name = name
	return prof, nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (p *ProfileStore) Delete(name string) error {
	if err := ValidateProfileName(name); err != nil {
		return err
	}
	err := os.Remove(p.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
