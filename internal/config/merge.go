package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base.
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - work_dir, manifest, platforms, roots: overlay wins when set
//   - units: merge by id, an overlay unit replaces the base unit in place
//   - platform_aliases: merge by name
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{}

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	result.WorkDir = firstNonEmpty(overlay.WorkDir, base.WorkDir)
	result.Manifest = firstNonEmpty(overlay.Manifest, base.Manifest)

	result.Platforms = base.Platforms
	if len(overlay.Platforms) > 0 {
		result.Platforms = overlay.Platforms
	}
	result.Roots = base.Roots
	if len(overlay.Roots) > 0 {
		result.Roots = overlay.Roots
	}

	result.Units = mergeUnits(base.Units, overlay.Units)
	result.PlatformAliases = mergeAliases(base.PlatformAliases, overlay.PlatformAliases)

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d — all config layers must agree on version", base, overlay)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// mergeUnits keeps base order so default roots stay stable across layers.
func mergeUnits(base, overlay []Unit) []Unit {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	replacement := make(map[string]Unit, len(overlay))
	for _, u := range overlay {
		replacement[u.ID] = u
	}

	result := make([]Unit, 0, len(base)+len(overlay))
	used := make(map[string]bool)
	for _, u := range base {
		if r, ok := replacement[u.ID]; ok {
			result = append(result, r)
			used[u.ID] = true
			continue
		}
		result = append(result, u)
	}
	for _, u := range overlay {
		if !used[u.ID] {
			result = append(result, u)
		}
	}
	return result
}

func mergeAliases(base, overlay []PlatformAlias) []PlatformAlias {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayNames := make(map[string]bool, len(overlay))
	for _, a := range overlay {
		overlayNames[a.Name] = true
	}

	var result []PlatformAlias
	for _, a := range base {
		if !overlayNames[a.Name] {
			result = append(result, a)
		}
	}
	return append(result, overlay...)
}
