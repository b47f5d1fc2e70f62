// Package registry holds the static device catalog: which external
// tools a device supports and which image kinds each tool may flash.
// The catalog is consulted, never authoritative, for flashing — an
// uncataloged device flashes fine as long as the image kind matches
// the operation.
package registry

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

//go:embed devices.toml
var embeddedCatalog []byte

// catalogFile mirrors the TOML layout of devices.toml.
type catalogFile struct {
	Devices []catalogEntry `toml:"device"`
}

type catalogEntry struct {
	Codename string              `toml:"codename"`
	Brand    string              `toml:"brand"`
	Model    string              `toml:"model"`
	Tools    map[string][]string `toml:"tools"`
}

// Registry is a read-only device catalog keyed by codename.
type Registry struct {
	profiles map[string]types.DeviceProfile
	order    []string // codenames in catalog order
}

// Load parses the embedded catalog and merges the user catalog from
// the XDG config dir over it, if one exists.
func Load() (*Registry, error) {
	return loadWithUserCatalog(filepath.Join(xdg.ConfigHome, "libreflash", "devices.toml"))
}

func loadWithUserCatalog(userPath string) (*Registry, error) {
	r := &Registry{profiles: make(map[string]types.DeviceProfile)}

	if err := r.merge(embeddedCatalog); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "built-in device catalog is invalid")
	}

	if userPath != "" {
		data, err := os.ReadFile(userPath)
		if err == nil {
			if err := r.merge(data); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "user device catalog %s is invalid", userPath)
			}
			logger := logging.GetLogger("registry")
			logger.Debug().Str("path", userPath).Msg("Merged user device catalog")
		}
	}

	return r, nil
}

func (r *Registry) merge(data []byte) error {
	var cat catalogFile
	if err := toml.Unmarshal(data, &cat); err != nil {
		return err
	}

	for _, entry := range cat.Devices {
		profile := types.DeviceProfile{
			Codename:       entry.Codename,
			Brand:          entry.Brand,
			Model:          entry.Model,
			SupportedTools: make(map[types.Tool][]types.ImageKind),
		}
		for toolName, kinds := range entry.Tools {
			tool, err := types.ParseTool(toolName)
			if err != nil {
				return err
			}
			imageKinds := make([]types.ImageKind, 0, len(kinds))
			for _, k := range kinds {
				imageKinds = append(imageKinds, types.ImageKind(k))
			}
			profile.SupportedTools[tool] = imageKinds
		}

		if _, exists := r.profiles[entry.Codename]; !exists {
			r.order = append(r.order, entry.Codename)
		}
		r.profiles[entry.Codename] = profile
	}
	return nil
}

// Lookup returns the profile for a codename.
func (r *Registry) Lookup(codename string) (types.DeviceProfile, error) {
	profile, ok := r.profiles[codename]
	if !ok {
		return types.DeviceProfile{}, errors.Newf(errors.ErrDeviceNotFound, "device %q is not in the catalog", codename)
	}
	return profile, nil
}

// Brands returns the distinct brands in catalog order.
func (r *Registry) Brands() []string {
	seen := make(map[string]bool)
	var brands []string
	for _, codename := range r.order {
		brand := r.profiles[codename].Brand
		if !seen[brand] {
			seen[brand] = true
			brands = append(brands, brand)
		}
	}
	return brands
}

// Models returns the model names for a brand, sorted.
func (r *Registry) Models(brand string) []string {
	var models []string
	for _, codename := range r.order {
		if p := r.profiles[codename]; p.Brand == brand {
			models = append(models, p.Model)
		}
	}
	sort.Strings(models)
	return models
}

// Suggest returns models of a brand whose name contains the typed
// fragment, case-insensitively. An empty fragment returns all models.
func (r *Registry) Suggest(brand, typed string) []string {
	typed = strings.ToLower(strings.TrimSpace(typed))
	models := r.Models(brand)
	if typed == "" {
		return models
	}
	var matches []string
	for _, m := range models {
		if strings.Contains(strings.ToLower(m), typed) {
			matches = append(matches, m)
		}
	}
	return matches
}

// Codename resolves a (brand, model) pair to the device codename.
func (r *Registry) Codename(brand, model string) (string, error) {
	for _, codename := range r.order {
		p := r.profiles[codename]
		if p.Brand == brand && p.Model == model {
			return codename, nil
		}
	}
	return "", errors.Newf(errors.ErrDeviceNotFound, "no catalog entry for %s %s", brand, model)
}

// All returns every profile in catalog order.
func (r *Registry) All() []types.DeviceProfile {
	profiles := make([]types.DeviceProfile, 0, len(r.order))
	for _, codename := range r.order {
		profiles = append(profiles, r.profiles[codename])
	}
	return profiles
}
