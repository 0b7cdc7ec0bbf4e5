// pattern: Functional Core

package discovery

// Project is a directory under a scan path that carries the template
// manifest, i.e. something crafthub created or could have created.
type Project struct {
	Name        string `json:"name"`                   // Directory name
	Path        string `json:"path"`                   // Resolved absolute path
	PackageName string `json:"package_name,omitempty"` // package.name from a TOML manifest
	Renamed     bool   `json:"renamed"`                // Placeholder no longer present
	HasGit      bool   `json:"has_git"`                // A repository was initialized since
}
