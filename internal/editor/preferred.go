// pattern: Imperative Shell

package editor

import (
	"path/filepath"
	"strings"

	"crafthub/internal/config"
)

// CustomSlug marks an editor given by executable path rather than detected.
const CustomSlug = "custom"

// Preferred picks the editor to use when none is named. ref is the
// configured default: a slug or executable path among detected matches by
// either; a path to an existing file outside the detected set is returned
// as a custom editor. Otherwise the first detected editor is used.
func Preferred(ref string, detected []Info) (Info, bool) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		if info, ok := match(ref, detected); ok {
			return info, true
		}
		if strings.ContainsAny(ref, `/\`) {
			path := config.ExpandHome(ref)
			if isRegularFile(path) {
				return Info{DisplayName: filepath.Base(path), Slug: CustomSlug, ExecutablePath: path}, true
			}
		}
	}
	if len(detected) == 0 {
		return Info{}, false
	}
	return detected[0], true
}

func match(ref string, detected []Info) (Info, bool) {
	for _, info := range detected {
		if info.Slug == ref || info.ExecutablePath == ref {
			return info, true
		}
	}
	resolved, err := filepath.EvalSymlinks(config.ExpandHome(ref))
	if err != nil {
		return Info{}, false
	}
	for _, info := range detected {
		if p, err := filepath.EvalSymlinks(info.ExecutablePath); err == nil && p == resolved {
			return info, true
		}
	}
	return Info{}, false
}
